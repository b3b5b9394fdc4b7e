package audio

import (
	"encoding/binary"
	"testing"
)

func sine(n int) []byte {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i%100 - 50) * 400)
	}
	return Int16ToPCM(samples)
}

func TestEncodeDecodeWAV(t *testing.T) {
	pcm := sine(1600)

	wavBytes, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if !IsWAV(wavBytes) {
		t.Fatal("encoded bytes do not carry a RIFF/WAVE header")
	}
	if len(wavBytes) != 44+len(pcm) {
		t.Errorf("expected %d bytes, got %d", 44+len(pcm), len(wavBytes))
	}

	got, rate, err := DecodeWAV(wavBytes)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("expected rate 16000, got %d", rate)
	}
	if len(got) != len(pcm) {
		t.Fatalf("expected %d bytes of pcm, got %d", len(pcm), len(got))
	}
	for i := 0; i < len(pcm); i += 2 {
		want := int16(binary.LittleEndian.Uint16(pcm[i:]))
		have := int16(binary.LittleEndian.Uint16(got[i:]))
		if want != have {
			t.Fatalf("sample %d: want %d, got %d", i/2, want, have)
		}
	}
}

func TestEncodeWAVErrors(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("expected error for empty audio")
	}
	if _, err := EncodeWAV([]byte{1, 2}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := EncodeWAV([]byte{1, 2, 3}, 16000); err == nil {
		t.Error("expected error for odd length")
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("not a wav file at all")); err == nil {
		t.Error("expected error for invalid wav")
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	got, err := PCM16ToFloat32(Int16ToPCM([]int16{0, 16384, -32768}))
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 0.5, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: want %v, got %v", i, want[i], got[i])
		}
	}
	if _, err := PCM16ToFloat32([]byte{1}); err == nil {
		t.Error("expected error for odd length")
	}
}

func TestResampleLinear(t *testing.T) {
	in := make([]float32, 480)
	out := ResampleLinear(in, 48000, 16000)
	if len(out) != 160 {
		t.Errorf("expected 160 samples, got %d", len(out))
	}
	same := ResampleLinear([]float32{1, 2}, 16000, 16000)
	if len(same) != 2 {
		t.Errorf("expected passthrough, got %v", same)
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("RMS of nothing should be 0")
	}
	if got := RMS([]int16{100, -100, 100, -100}); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
}
