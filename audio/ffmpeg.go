package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrNoFFmpeg is returned when a conversion needs ffmpeg and it is not on PATH.
var ErrNoFFmpeg = errors.New("ffmpeg not found in PATH")

// ConvertToWAV pipes arbitrary audio (webm, ogg, mp3, ...) through ffmpeg and returns
// mono 16-bit WAV at sampleRate.
func ConvertToWAV(ctx context.Context, in []byte, sampleRate int) ([]byte, error) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrNoFFmpeg
	}

	// raw PCM out: a WAV header written to a pipe carries no valid sizes
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1", "-ar", fmt.Sprint(sampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no audio")
	}
	return EncodeWAV(stdout.Bytes(), sampleRate)
}
