package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Libre talks to a LibreTranslate-compatible /translate endpoint.
type Libre struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewLibre(base, apiKey string, timeout time.Duration) *Libre {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Libre{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *Libre) Translate(ctx context.Context, text, target, source string) (string, error) {
	if c.base == "" {
		return "", fmt.Errorf("libretranslate base url not configured")
	}
	src := strings.TrimSpace(source)
	if src == "" {
		src = "auto"
	}

	payload := map[string]any{
		"q":      text,
		"source": src,
		"target": target,
		"format": "text",
	}
	if c.apiKey != "" {
		payload["api_key"] = c.apiKey
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/translate", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return "", fmt.Errorf("translation http %d: %s", resp.StatusCode, e.Error)
		}
		return "", fmt.Errorf("translation http %d for target %s", resp.StatusCode, target)
	}

	var lr struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", err
	}
	return strings.TrimSpace(lr.TranslatedText), nil
}
