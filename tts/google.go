package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	googleTTSEndpoint = "https://translate.google.com/translate_tts"
	// the endpoint rejects longer inputs
	googleMaxChars = 100
)

// GoogleClient uses Google Translate's speech endpoint, the same voice the translate
// web page reads with.
type GoogleClient struct {
	base string
	http *http.Client
}

func NewGoogleClient(base string, timeout time.Duration) *GoogleClient {
	if base == "" {
		base = googleTTSEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleClient{base: base, http: &http.Client{Timeout: timeout}}
}

func (g *GoogleClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	parts := splitText(text, googleMaxChars)
	if len(parts) == 0 {
		return nil, &ServiceError{Backend: "google", Err: errors.New("no text to speak")}
	}

	var out []byte
	for i, part := range parts {
		chunk, err := g.fetch(ctx, part, language, i, len(parts))
		if err != nil {
			return nil, &ServiceError{Backend: "google", Err: err}
		}
		// MP3 frames can be concatenated as-is
		out = append(out, chunk...)
	}
	return out, nil
}

func (g *GoogleClient) fetch(ctx context.Context, text, language string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", language)
	q.Set("q", text)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// splitText cuts text into pieces of at most limit runes, preferring to break after
// punctuation, then at spaces.
func splitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	var parts []string
	for text != "" {
		runes := []rune(text)
		if len(runes) <= limit {
			parts = append(parts, text)
			break
		}
		cut := -1
		for i := limit; i > 0; i-- {
			if unicode.IsPunct(runes[i-1]) && (i == len(runes) || unicode.IsSpace(runes[i])) {
				cut = i
				break
			}
		}
		if cut < 0 {
			for i := limit; i > 0; i-- {
				if unicode.IsSpace(runes[i]) {
					cut = i
					break
				}
			}
		}
		if cut <= 0 {
			cut = limit
		}
		if p := strings.TrimSpace(string(runes[:cut])); p != "" {
			parts = append(parts, p)
		}
		text = strings.TrimSpace(string(runes[cut:]))
	}
	return parts
}
