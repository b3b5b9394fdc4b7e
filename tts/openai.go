package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient uses the /audio/speech endpoint. The voices are multilingual, so the
// language argument is not sent.
type OpenAIClient struct {
	Client *openai.Client
	Model  string
	Voice  string
}

func NewOpenAIClient(apiKey, baseURL, model, voice string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAIClient{Client: openai.NewClientWithConfig(cfg), Model: model, Voice: voice}, nil
}

func (c *OpenAIClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	resp, err := c.Client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(c.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, &ServiceError{Backend: "openai", Err: err}
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &ServiceError{Backend: "openai", Err: fmt.Errorf("read audio: %w", err)}
	}
	return audio, nil
}
