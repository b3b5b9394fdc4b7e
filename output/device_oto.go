//go:build oto

package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"

	"github.com/mrsingh-rishi/voice-translator/audio"
)

// oto allows a single context per process, created at the first sample rate asked for.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoRate    int
	otoErr     error
)

func sharedContext(sampleRate int) (*oto.Context, int, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("create oto context: %w", err)
			return
		}
		<-ready
		otoContext, otoRate = ctx, sampleRate
	})
	return otoContext, otoRate, otoErr
}

// OtoDevice decodes MP3 clips and plays them through the system mixer.
type OtoDevice struct {
	sampleRate int
	ctx        *oto.Context
	player     *oto.Player
}

func NewDevice(sampleRate int) (Device, error) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &OtoDevice{sampleRate: sampleRate}, nil
}

func (d *OtoDevice) Init() error {
	ctx, _, err := sharedContext(d.sampleRate)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("oto context: %w", err)
	}
	d.ctx = ctx
	return nil
}

func (d *OtoDevice) Load(r io.Reader) error {
	if d.ctx == nil {
		return errors.New("device not initialized")
	}
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	var src io.Reader = dec
	if _, rate, _ := sharedContext(d.sampleRate); dec.SampleRate() != rate {
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return fmt.Errorf("decode mp3: %w", err)
		}
		src = bytes.NewReader(resampleStereo(pcm, dec.SampleRate(), rate))
	}
	d.player = d.ctx.NewPlayer(src)
	return nil
}

// resampleStereo converts interleaved 16-bit stereo PCM between sample rates.
func resampleStereo(pcm []byte, inRate, outRate int) []byte {
	samples, err := audio.PCM16ToFloat32(pcm[:len(pcm)&^3])
	if err != nil || len(samples) == 0 {
		return pcm
	}
	left := make([]float32, len(samples)/2)
	right := make([]float32, len(samples)/2)
	for i := range left {
		left[i], right[i] = samples[2*i], samples[2*i+1]
	}
	left = audio.ResampleLinear(left, inRate, outRate)
	right = audio.ResampleLinear(right, inRate, outRate)
	out := make([]int16, 2*len(left))
	for i := range left {
		out[2*i] = toInt16(left[i])
		out[2*i+1] = toInt16(right[i])
	}
	return audio.Int16ToPCM(out)
}

func toInt16(v float32) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	}
	return int16(v * 32767)
}

func (d *OtoDevice) Play() error {
	if d.player == nil {
		return errors.New("no clip loaded")
	}
	d.player.Play()
	return nil
}

func (d *OtoDevice) Busy() bool {
	return d.player != nil && d.player.IsPlaying()
}

func (d *OtoDevice) Quit() error {
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
