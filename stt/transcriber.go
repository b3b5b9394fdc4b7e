// Package stt turns captured utterances into text.
package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrsingh-rishi/voice-translator/model"
)

// ErrNotUnderstood means the backend answered but found no intelligible speech.
var ErrNotUnderstood = errors.New("could not understand the audio")

// ServiceError wraps a failure to reach or use a recognition backend.
type ServiceError struct {
	Backend string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: could not request results: %v", e.Backend, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Transcriber converts one utterance to text. language is a canonical code or "auto".
// Implementations return ErrNotUnderstood or a *ServiceError on failure.
type Transcriber interface {
	Transcribe(ctx context.Context, u model.Utterance, language string) (string, error)
}
