//go:build portaudio

package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"
)

// Microphone reads the default input device through PortAudio.
type Microphone struct {
	sampleRate      int
	framesPerBuffer int

	mu     sync.Mutex
	stream *portaudio.Stream
	frames *reframer
}

// NewMicrophone prepares a microphone at sampleRate; nothing is acquired until Open.
func NewMicrophone(sampleRate, framesPerBuffer int) *Microphone {
	if framesPerBuffer <= 0 {
		framesPerBuffer = sampleRate / 50
	}
	return &Microphone{sampleRate: sampleRate, framesPerBuffer: framesPerBuffer}
}

// Open initializes PortAudio and starts the default input stream.
func (m *Microphone) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return errors.New("microphone already open")
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	buf := make([]int16, m.framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}
	m.stream = stream
	m.frames = newReframer(buf, func() error {
		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return fmt.Errorf("read input stream: %w", err)
		}
		return nil
	})
	log.Debug().Int("sample_rate", m.sampleRate).Int("frames_per_buffer", m.framesPerBuffer).Msg("microphone opened")
	return nil
}

// Read fills frame with the next captured samples.
func (m *Microphone) Read(frame []int16) error {
	if m.stream == nil {
		return errors.New("microphone not open")
	}
	return m.frames.Read(frame)
}

func (m *Microphone) SampleRate() int { return m.sampleRate }

// Close stops the stream and releases PortAudio.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}
	var errs []error
	if err := m.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := m.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, err)
	}
	m.stream = nil
	m.frames = nil
	return errors.Join(errs...)
}
