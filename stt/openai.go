package stt

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mrsingh-rishi/voice-translator/audio"
	"github.com/mrsingh-rishi/voice-translator/model"
)

// OpenAIClient transcribes through an OpenAI-compatible /audio/transcriptions endpoint
// (OpenAI Whisper, Groq, a local faster-whisper server, ...).
type OpenAIClient struct {
	Client *openai.Client
	Model  string
}

// NewOpenAIClient builds a client for baseURL; an empty baseURL means api.openai.com.
func NewOpenAIClient(apiKey, baseURL, modelName string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if modelName == "" {
		modelName = openai.Whisper1
	}
	return &OpenAIClient{
		Client: openai.NewClientWithConfig(cfg),
		Model:  modelName,
	}
}

func (c *OpenAIClient) Transcribe(ctx context.Context, u model.Utterance, language string) (string, error) {
	wav, err := audio.EncodeWAV(u.PCM, u.SampleRate)
	if err != nil {
		return "", &ServiceError{Backend: "openai", Err: err}
	}

	req := openai.AudioRequest{
		Model:    c.Model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wav),
		Format:   openai.AudioResponseFormatJSON,
	}
	if language != "" && language != "auto" {
		req.Language = language
	}

	resp, err := c.Client.CreateTranscription(ctx, req)
	if err != nil {
		return "", &ServiceError{Backend: "openai", Err: err}
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}
