package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// Google uses the public web translation endpoint (no API key, source may be "auto").
type Google struct {
	base string
	http *http.Client
}

// NewGoogle creates a client; an empty base uses Google's public endpoint.
func NewGoogle(base string, timeout time.Duration) *Google {
	if base == "" {
		base = googleEndpoint
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Google{base: base, http: &http.Client{Timeout: timeout}}
}

func (g *Google) Translate(ctx context.Context, text, target, source string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("nothing to translate")
	}
	src := strings.TrimSpace(source)
	if src == "" {
		src = "auto"
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", src)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translation http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// [[["translated","original",...],...],null,"en",...]
	var raw []any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(raw) == 0 {
		return "", ErrEmptyTranslation
	}
	segments, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected response shape")
	}
	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
