package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1"

type ElevenLabsClient struct {
	APIKey  string
	VoiceId string
	ModelId string
	BaseURL string
	HTTP    *http.Client
}

func NewElevenLabsClient(apiKey string, voiceId string, modelId string, timeout time.Duration) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs API key is required")
	}
	if voiceId == "" {
		voiceId = "JBFqnCBsd6RMkjVDRZzb"
	}
	if modelId == "" {
		modelId = "eleven_multilingual_v2"
	}
	return &ElevenLabsClient{
		APIKey:  apiKey,
		VoiceId: voiceId,
		ModelId: modelId,
		BaseURL: elevenLabsEndpoint,
		HTTP:    &http.Client{Timeout: timeout},
	}, nil
}

func (client *ElevenLabsClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	base, err := url.Parse(fmt.Sprintf("%s/text-to-speech/%s", client.BaseURL, client.VoiceId))
	if err != nil {
		return nil, &ServiceError{Backend: "elevenlabs", Err: err}
	}
	q := base.Query()
	q.Set("output_format", "mp3_44100_128")
	base.RawQuery = q.Encode()

	payload := map[string]interface{}{
		"text":          text,
		"model_id":      client.ModelId,
		"language_code": language,
		"voice_settings": map[string]float64{
			"stability":        0.75,
			"similarity_boost": 0.7,
		},
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &ServiceError{Backend: "elevenlabs", Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &ServiceError{Backend: "elevenlabs", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("xi-api-key", client.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := client.HTTP.Do(req)
	if err != nil {
		return nil, &ServiceError{Backend: "elevenlabs", Err: fmt.Errorf("HTTP request error: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ServiceError{Backend: "elevenlabs", Err: fmt.Errorf("bad status: %s: %s", resp.Status, msg)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Backend: "elevenlabs", Err: fmt.Errorf("read audio: %w", err)}
	}
	return audio, nil
}
