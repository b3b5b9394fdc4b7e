// Package tts synthesizes speech for translated text. Every backend returns MP3 bytes.
package tts

import (
	"context"
	"fmt"
)

// Synthesizer converts text to speech in the given language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// ServiceError wraps a failed synthesis request.
type ServiceError struct {
	Backend string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s text-to-speech: %v", e.Backend, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
