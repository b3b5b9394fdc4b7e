//go:build !whisper_cpp

package stt

import (
	"context"
	"errors"

	"github.com/mrsingh-rishi/voice-translator/model"
)

// WhisperEngine is a placeholder so the project builds without the whisper_cpp tag.
type WhisperEngine struct{}

func NewWhisperEngine(modelPath string, threads int) (*WhisperEngine, error) {
	return nil, errors.New("local whisper not compiled in (build with -tags whisper_cpp)")
}

func (e *WhisperEngine) Transcribe(ctx context.Context, u model.Utterance, language string) (string, error) {
	return "", &ServiceError{Backend: "whisper", Err: errors.New("not compiled in")}
}

func (e *WhisperEngine) Close() error { return nil }
