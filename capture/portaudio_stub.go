//go:build !portaudio

package capture

// Microphone is unavailable without the portaudio build tag.
type Microphone struct {
	sampleRate int
}

// NewMicrophone returns a microphone whose Open always fails.
func NewMicrophone(sampleRate, framesPerBuffer int) *Microphone {
	return &Microphone{sampleRate: sampleRate}
}

func (m *Microphone) Open() error { return ErrNoMicrophone }

func (m *Microphone) Read(frame []int16) error { return ErrNoMicrophone }

func (m *Microphone) SampleRate() int { return m.sampleRate }

func (m *Microphone) Close() error { return nil }
