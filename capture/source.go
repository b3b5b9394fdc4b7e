// Package capture records speech from a microphone and cuts it into bounded phrases.
package capture

import "errors"

// ErrNoMicrophone is returned by Open when the binary was built without microphone support.
var ErrNoMicrophone = errors.New("microphone input not available (build with -tags portaudio)")

// Source is a live 16-bit mono PCM stream. Implementations are opened once, read from a
// single goroutine and closed on every exit path.
type Source interface {
	Open() error
	// Read fills frame with the next samples, blocking until they are available.
	Read(frame []int16) error
	SampleRate() int
	Close() error
}
