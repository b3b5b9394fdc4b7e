package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mrsingh-rishi/voice-translator/audio"
)

// ErrWaitTimeout is returned by Listen when no speech started within the wait timeout.
var ErrWaitTimeout = errors.New("listening timed out while waiting for phrase to start")

// ListenerConfig tunes speech detection.
type ListenerConfig struct {
	EnergyThreshold    float64       // starting RMS threshold, replaced by calibration
	MinEnergyThreshold float64       // calibration never goes below this
	DynamicEnergy      bool          // keep tracking ambient level while waiting for speech
	DynamicDamping     float64       // per-second damping of the old threshold
	DynamicRatio       float64       // speech must be this many times louder than ambient
	PauseThreshold     time.Duration // trailing silence that ends a phrase
	NonSpeaking        time.Duration // pre-roll kept before the first loud frame
	FrameDuration      time.Duration
}

// DefaultListenerConfig mirrors the usual defaults for 16 kHz speech capture.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		EnergyThreshold:    300,
		MinEnergyThreshold: 50,
		DynamicEnergy:      false,
		DynamicDamping:     0.15,
		DynamicRatio:       1.5,
		PauseThreshold:     800 * time.Millisecond,
		NonSpeaking:        500 * time.Millisecond,
		FrameDuration:      20 * time.Millisecond,
	}
}

// Listener cuts a Source into phrases using an energy threshold.
// It is not safe for concurrent use; the capture loop owns it.
type Listener struct {
	cfg       ListenerConfig
	threshold float64
}

// NewListener creates a listener with the configured starting threshold.
func NewListener(cfg ListenerConfig) *Listener {
	def := DefaultListenerConfig()
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = def.FrameDuration
	}
	if cfg.PauseThreshold <= 0 {
		cfg.PauseThreshold = def.PauseThreshold
	}
	if cfg.DynamicDamping <= 0 || cfg.DynamicDamping >= 1 {
		cfg.DynamicDamping = def.DynamicDamping
	}
	if cfg.DynamicRatio <= 0 {
		cfg.DynamicRatio = def.DynamicRatio
	}
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = def.EnergyThreshold
	}
	return &Listener{cfg: cfg, threshold: cfg.EnergyThreshold}
}

// Threshold returns the current speech energy threshold.
func (l *Listener) Threshold() float64 {
	return l.threshold
}

func (l *Listener) frameSamples(src Source) int {
	n := int(time.Duration(src.SampleRate()) * l.cfg.FrameDuration / time.Second)
	if n < 1 {
		n = 1
	}
	return n
}

func (l *Listener) framesFor(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(l.cfg.FrameDuration)))
}

// adjust moves the threshold toward ratio*energy, damped per frame.
func (l *Listener) adjust(energy float64) {
	damping := math.Pow(l.cfg.DynamicDamping, l.cfg.FrameDuration.Seconds())
	target := energy * l.cfg.DynamicRatio
	l.threshold = l.threshold*damping + target*(1-damping)
	if l.threshold < l.cfg.MinEnergyThreshold {
		l.threshold = l.cfg.MinEnergyThreshold
	}
}

// AdjustForAmbientNoise samples the source for duration and sets the threshold
// from the measured background level. Call it once, before the first Listen.
func (l *Listener) AdjustForAmbientNoise(ctx context.Context, src Source, duration time.Duration) error {
	frame := make([]int16, l.frameSamples(src))
	for elapsed := time.Duration(0); elapsed < duration; elapsed += l.cfg.FrameDuration {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := src.Read(frame); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		l.adjust(audio.RMS(frame))
	}
	return nil
}

// Listen blocks until a phrase has been spoken and returns it as PCM16 bytes.
// timeout bounds the wait for speech to start (0 waits forever); phraseLimit bounds
// the phrase itself (0 means until the speaker pauses).
func (l *Listener) Listen(ctx context.Context, src Source, timeout, phraseLimit time.Duration) ([]byte, error) {
	frameLen := l.frameSamples(src)
	preRoll := l.framesFor(l.cfg.NonSpeaking)
	pauseFrames := l.framesFor(l.cfg.PauseThreshold)

	var frames [][]int16
	read := func() ([]int16, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := make([]int16, frameLen)
		if err := src.Read(f); err != nil {
			return nil, err
		}
		return f, nil
	}

	// wait for the first frame above the threshold
	for waited := time.Duration(0); ; waited += l.cfg.FrameDuration {
		if timeout > 0 && waited > timeout {
			return nil, ErrWaitTimeout
		}
		f, err := read()
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		energy := audio.RMS(f)
		if energy > l.threshold {
			break
		}
		if l.cfg.DynamicEnergy {
			l.adjust(energy)
		}
		if len(frames) > preRoll {
			frames = frames[len(frames)-preRoll:]
		}
	}

	// record until the speaker pauses or the phrase limit is hit
	silent := 0
	for phrase := l.cfg.FrameDuration; phraseLimit <= 0 || phrase < phraseLimit; phrase += l.cfg.FrameDuration {
		f, err := read()
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		if audio.RMS(f) > l.threshold {
			silent = 0
		} else {
			silent++
		}
		if silent >= pauseFrames {
			break
		}
	}

	// keep at most NonSpeaking worth of the trailing pause
	if trim := silent - preRoll; trim > 0 {
		frames = frames[:len(frames)-trim]
	}

	samples := make([]int16, 0, len(frames)*frameLen)
	for _, f := range frames {
		samples = append(samples, f...)
	}
	return audio.Int16ToPCM(samples), nil
}
