package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const (
	// GroqBaseURL is the OpenAI-compatible endpoint the enhancer targets by default.
	GroqBaseURL  = "https://api.groq.com/openai/v1"
	DefaultModel = "llama-3.3-70b-versatile"

	systemInstructions = "You are a professional translator. Improve the given translation while maintaining its original meaning."
)

// OpenAIClient refines translations with a chat-completion model on any
// OpenAI-compatible endpoint.
type OpenAIClient struct {
	Client             *openai.Client
	SystemInstructions string
	Model              string
}

func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIClient{
		Client:             openai.NewClientWithConfig(cfg),
		SystemInstructions: systemInstructions,
		Model:              model,
	}, nil
}

func buildPrompt(original, basic string) string {
	return fmt.Sprintf(`Original text: %s
Basic translation: %s

Rewrite the basic translation so it reads naturally in its language and keeps the meaning of the original text. Reply with the improved translation only, without quotes, notes or explanations.`, original, basic)
}

// Enhance streams an improved translation and returns the collected text.
func (c *OpenAIClient) Enhance(ctx context.Context, original, basic string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.SystemInstructions},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(original, basic)},
		},
		Stream: true,
	}

	stream, err := c.Client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("start completion stream: %w", err)
	}
	defer stream.Close()

	buffer := &strings.Builder{}
	if err := readAndCollect(stream, buffer); err != nil {
		return "", err
	}

	out := cleanResponse(buffer.String())
	if out == "" {
		return "", fmt.Errorf("model returned no text")
	}
	log.Debug().Str("model", c.Model).Int("chars", len(out)).Msg("enhanced translation")
	return out, nil
}

// readAndCollect appends every streamed delta to buffer until the stream ends.
func readAndCollect(stream *openai.ChatCompletionStream, buffer *strings.Builder) error {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive completion chunk: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		buffer.WriteString(resp.Choices[0].Delta.Content)
	}
}

// cleanResponse strips whitespace and wrapping quotes models like to add.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
