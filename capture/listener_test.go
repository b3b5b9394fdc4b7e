package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSource plays a script of per-frame amplitudes, then repeats tail forever.
type fakeSource struct {
	rate   int
	script []int16
	tail   int16
	pos    int
	err    error
	opened bool
	closed bool
}

func (f *fakeSource) Open() error {
	f.opened = true
	return nil
}

func (f *fakeSource) Read(frame []int16) error {
	if f.err != nil {
		return f.err
	}
	level := f.tail
	if f.pos < len(f.script) {
		level = f.script[f.pos]
	}
	f.pos++
	for i := range frame {
		if i%2 == 0 {
			frame[i] = level
		} else {
			frame[i] = -level
		}
	}
	return nil
}

func (f *fakeSource) SampleRate() int { return f.rate }

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func levels(n int, level int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = level
	}
	return out
}

func testListener() *Listener {
	cfg := DefaultListenerConfig()
	return NewListener(cfg)
}

func TestAdjustForAmbientNoise(t *testing.T) {
	src := &fakeSource{rate: 1000, tail: 100}
	l := testListener()

	if err := l.AdjustForAmbientNoise(context.Background(), src, 2*time.Second); err != nil {
		t.Fatalf("calibration failed: %v", err)
	}
	if src.pos != 100 {
		t.Errorf("expected 100 calibration frames, read %d", src.pos)
	}
	if th := l.Threshold(); th < 140 || th > 170 {
		t.Errorf("expected threshold near 150, got %f", th)
	}
}

func TestAdjustForAmbientNoiseFloor(t *testing.T) {
	src := &fakeSource{rate: 1000, tail: 0}
	l := testListener()

	if err := l.AdjustForAmbientNoise(context.Background(), src, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if l.Threshold() < l.cfg.MinEnergyThreshold {
		t.Errorf("threshold %f fell below floor %f", l.Threshold(), l.cfg.MinEnergyThreshold)
	}
}

func TestListenPhraseEndsOnPause(t *testing.T) {
	script := append(levels(10, 0), levels(20, 1000)...)
	src := &fakeSource{rate: 1000, script: script, tail: 0}
	l := testListener()

	pcm, err := l.Listen(context.Background(), src, 0, 0)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	// 10 lead-in + 20 speech + 40 pause frames, trailing pause trimmed to 25 frames
	if want := 55 * 20 * 2; len(pcm) != want {
		t.Errorf("expected %d bytes, got %d", want, len(pcm))
	}
}

func TestListenPhraseLimit(t *testing.T) {
	src := &fakeSource{rate: 1000, tail: 1000}
	l := testListener()

	pcm, err := l.Listen(context.Background(), src, 0, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if want := 10 * 20 * 2; len(pcm) != want {
		t.Errorf("expected %d bytes (200ms), got %d", want, len(pcm))
	}
}

func TestListenWaitTimeout(t *testing.T) {
	src := &fakeSource{rate: 1000, tail: 0}
	l := testListener()

	_, err := l.Listen(context.Background(), src, 100*time.Millisecond, time.Second)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
}

func TestListenContextCancelled(t *testing.T) {
	src := &fakeSource{rate: 1000, tail: 0}
	l := testListener()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Listen(ctx, src, 0, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestListenSourceError(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &fakeSource{rate: 1000, err: boom}
	l := testListener()

	if _, err := l.Listen(context.Background(), src, 0, 0); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestDynamicEnergyTracksAmbient(t *testing.T) {
	cfg := DefaultListenerConfig()
	cfg.DynamicEnergy = true
	l := NewListener(cfg)

	// a steady hum at 250 pulls the threshold up toward 375 while waiting
	src := &fakeSource{rate: 1000, tail: 250}
	_, err := l.Listen(context.Background(), src, 3*time.Second, time.Second)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if th := l.Threshold(); th <= cfg.EnergyThreshold || th > 375 {
		t.Errorf("expected threshold between %f and 375, got %f", cfg.EnergyThreshold, th)
	}
}
