// Package output plays synthesized clips on the audio output device, one at a time.
package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/model"
)

// ErrNoDevice is returned when the binary was built without an audio output backend.
var ErrNoDevice = errors.New("audio output not available (build with -tags oto)")

// DefaultPollInterval is how often the player checks whether a clip is still playing.
const DefaultPollInterval = 100 * time.Millisecond

// Device is an audio output that plays one loaded clip at a time.
type Device interface {
	Init() error
	Load(r io.Reader) error
	Play() error
	Busy() bool
	Quit() error
}

// Player owns a Device and serializes every clip through it. Concurrent Play calls
// wait their turn; two clips never play at once.
type Player struct {
	device       Device
	pollInterval time.Duration
	mu           sync.Mutex
	logger       zerolog.Logger
}

func NewPlayer(device Device, pollInterval time.Duration) (*Player, error) {
	if device == nil {
		return nil, fmt.Errorf("output device is required")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Player{
		device:       device,
		pollInterval: pollInterval,
		logger:       log.With().Str("component", "player").Logger(),
	}, nil
}

// Play re-initializes the device, plays clip from memory and returns once the device
// reports it is idle again. The context only bounds the wait for a previous clip's
// turn; a clip that started playing runs to completion.
func (p *Player) Play(ctx context.Context, clip model.PlaybackClip) error {
	if len(clip.Audio) == 0 {
		return fmt.Errorf("empty clip")
	}

	if err := p.lock(ctx); err != nil {
		return err
	}
	defer p.mu.Unlock()

	// some backends keep a stale device lock between clips
	if err := p.device.Quit(); err != nil {
		p.logger.Debug().Err(err).Msg("device quit before init")
	}
	if err := p.device.Init(); err != nil {
		return fmt.Errorf("init output device: %w", err)
	}
	if err := p.device.Load(bytes.NewReader(clip.Audio)); err != nil {
		return fmt.Errorf("load clip: %w", err)
	}
	if err := p.device.Play(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	started := time.Now()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for p.device.Busy() {
		<-ticker.C
	}
	p.logger.Debug().Str("language", clip.Language).Int("bytes", len(clip.Audio)).
		Dur("took", time.Since(started)).Msg("clip played")
	return nil
}

// lock takes the device mutex, giving up if ctx ends first.
func (p *Player) lock(ctx context.Context) error {
	if p.mu.TryLock() {
		return nil
	}
	acquired := make(chan struct{})
	go func() {
		p.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// hand the lock back once the waiter gets it
		go func() {
			<-acquired
			p.mu.Unlock()
		}()
		return ctx.Err()
	}
}

// Close releases the device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device.Quit()
}
