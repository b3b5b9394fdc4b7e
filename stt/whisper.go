//go:build whisper_cpp

package stt

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/audio"
	"github.com/mrsingh-rishi/voice-translator/model"
)

const whisperSampleRate = 16000

// WhisperEngine runs whisper.cpp locally. Calls are serialized; the model is not
// safe for concurrent processing.
type WhisperEngine struct {
	model   whisperpkg.Model
	threads uint
	mu      sync.Mutex
}

func NewWhisperEngine(modelPath string, threads int) (*WhisperEngine, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	log.Info().Str("model", modelPath).Int("threads", threads).Msg("whisper: model loaded")
	return &WhisperEngine{model: m, threads: uint(threads)}, nil
}

func (e *WhisperEngine) Transcribe(ctx context.Context, u model.Utterance, language string) (string, error) {
	samples, err := audio.PCM16ToFloat32(u.PCM)
	if err != nil {
		return "", &ServiceError{Backend: "whisper", Err: err}
	}
	samples = audio.ResampleLinear(samples, u.SampleRate, whisperSampleRate)

	// shorter than 100ms never yields text
	if len(samples) < whisperSampleRate/10 {
		return "", ErrNotUnderstood
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", &ServiceError{Backend: "whisper", Err: err}
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return "", &ServiceError{Backend: "whisper", Err: fmt.Errorf("create context: %w", err)}
	}
	wctx.SetThreads(e.threads)
	if language == "" {
		language = "auto"
	}
	if err := wctx.SetLanguage(language); err != nil {
		log.Warn().Err(err).Str("language", language).Msg("whisper: language rejected, detecting instead")
		_ = wctx.SetLanguage("auto")
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", &ServiceError{Backend: "whisper", Err: fmt.Errorf("process audio: %w", err)}
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Msg("whisper: error reading segment")
			}
			break
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			segments = append(segments, text)
		}
	}

	full := strings.TrimSpace(strings.Join(segments, " "))
	if full == "" {
		return "", ErrNotUnderstood
	}
	return full, nil
}

func (e *WhisperEngine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}
