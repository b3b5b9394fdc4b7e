package model

import (
	"time"

	"github.com/google/uuid"
)

// Utterance is one captured, time-bounded unit of speech awaiting processing.
// PCM holds 16-bit little-endian mono samples.
type Utterance struct {
	ID         uuid.UUID
	PCM        []byte
	SampleRate int
	SourceHint string
	CapturedAt time.Time
}

// NewUtterance stamps a freshly captured buffer with an ID and capture time.
func NewUtterance(pcm []byte, sampleRate int, sourceHint string) Utterance {
	return Utterance{
		ID:         uuid.New(),
		PCM:        pcm,
		SampleRate: sampleRate,
		SourceHint: sourceHint,
		CapturedAt: time.Now(),
	}
}

// Duration returns the length of the recorded audio.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	samples := len(u.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(u.SampleRate)
}

// TranslationResult is what one processing iteration produced for an utterance.
type TranslationResult struct {
	UtteranceID         string `json:"utterance_id,omitempty"`
	OriginalText        string `json:"recognized_text"`
	BasicTranslation    string `json:"basic_translation"`
	EnhancedTranslation string `json:"ai_translation"`
	SourceCode          string `json:"source_lang"`
	TargetCode          string `json:"target_lang"`
}

// PlaybackClip is synthesized audio handed straight to the player.
type PlaybackClip struct {
	Audio    []byte
	Language string
}
