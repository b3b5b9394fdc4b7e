package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/model"
)

const deepgramEndpoint = "wss://api.deepgram.com/v1/listen"

// TranscriptionMessage is the subset of a Deepgram streaming result we read.
type TranscriptionMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// DeepgramClient opens one streaming socket per utterance, sends the audio, closes the
// stream and collects the final transcripts.
type DeepgramClient struct {
	APIKey    string
	Endpoint  string
	Model     string
	ChunkSize int
	Timeout   time.Duration
	Dialer    *gws.Dialer
}

// NewDeepgramClient initializes a client with Deepgram's default endpoint when endpoint is empty.
func NewDeepgramClient(apiKey, endpoint, modelName string) (*DeepgramClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}
	if endpoint == "" {
		endpoint = deepgramEndpoint
	}
	if modelName == "" {
		modelName = "nova-2"
	}
	return &DeepgramClient{
		APIKey:    apiKey,
		Endpoint:  endpoint,
		Model:     modelName,
		ChunkSize: 8000,
		Timeout:   30 * time.Second,
		Dialer:    gws.DefaultDialer,
	}, nil
}

func (dg *DeepgramClient) listenURL(u model.Utterance, language string) (string, error) {
	base, err := url.Parse(dg.Endpoint)
	if err != nil {
		return "", err
	}
	q := base.Query()
	q.Set("model", dg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(u.SampleRate))
	q.Set("channels", "1")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if language != "" && language != "auto" {
		q.Set("language", language)
	} else {
		q.Set("language", "multi")
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (dg *DeepgramClient) Transcribe(ctx context.Context, u model.Utterance, language string) (string, error) {
	dgURL, err := dg.listenURL(u, language)
	if err != nil {
		return "", &ServiceError{Backend: "deepgram", Err: err}
	}
	header := http.Header{
		"Authorization": {fmt.Sprintf("Token %s", dg.APIKey)},
	}
	conn, _, err := dg.Dialer.DialContext(ctx, dgURL, header)
	if err != nil {
		return "", &ServiceError{Backend: "deepgram", Err: fmt.Errorf("dial: %w", err)}
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(dg.Timeout)
	}
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	for off := 0; off < len(u.PCM); off += dg.ChunkSize {
		end := min(off+dg.ChunkSize, len(u.PCM))
		if err := conn.WriteMessage(gws.BinaryMessage, u.PCM[off:end]); err != nil {
			return "", &ServiceError{Backend: "deepgram", Err: fmt.Errorf("write audio: %w", err)}
		}
	}
	if err := conn.WriteMessage(gws.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return "", &ServiceError{Backend: "deepgram", Err: fmt.Errorf("close stream: %w", err)}
	}

	var parts []string
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if gws.IsCloseError(err, gws.CloseNormalClosure) || len(parts) > 0 {
				break
			}
			return "", &ServiceError{Backend: "deepgram", Err: fmt.Errorf("read: %w", err)}
		}

		var msg TranscriptionMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug().Err(err).Msg("deepgram: skipping unparsable message")
			continue
		}
		if msg.Type == "Metadata" {
			break
		}
		if !msg.IsFinal || len(msg.Channel.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}
