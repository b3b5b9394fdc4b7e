//go:build !oto

package output

import "io"

// NullDevice stands in when no audio backend is compiled in; Init always fails.
type NullDevice struct{}

func NewDevice(sampleRate int) (Device, error) { return NullDevice{}, nil }

func (NullDevice) Init() error { return ErrNoDevice }

func (NullDevice) Load(r io.Reader) error { return ErrNoDevice }

func (NullDevice) Play() error { return ErrNoDevice }

func (NullDevice) Busy() bool { return false }

func (NullDevice) Quit() error { return nil }
