package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/config"
	"github.com/mrsingh-rishi/voice-translator/llm"
	"github.com/mrsingh-rishi/voice-translator/stt"
	"github.com/mrsingh-rishi/voice-translator/translate"
	"github.com/mrsingh-rishi/voice-translator/tts"
)

// newTranscriber returns the configured speech recognizer and, for local engines,
// a closer to release the model.
func newTranscriber(cfg config.TranscriptionConfig) (stt.Transcriber, io.Closer, error) {
	switch cfg.Backend {
	case "openai":
		return stt.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.GetTimeoutDuration()), nil, nil
	case "deepgram":
		c, err := stt.NewDeepgramClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		c.Timeout = cfg.GetTimeoutDuration()
		return c, nil, nil
	case "whisper":
		e, err := stt.NewWhisperEngine(cfg.WhisperModelPath, cfg.WhisperThreads)
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	}
	return nil, nil, fmt.Errorf("unknown transcription backend %q", cfg.Backend)
}

// newTranslation builds the translate service, with an enhancer when one is
// enabled and has credentials.
func newTranslation(tc config.TranslationConfig, ec config.EnhancementConfig) (*translate.Service, error) {
	var backend translate.Translator
	switch tc.Backend {
	case "google":
		backend = translate.NewGoogle(tc.BaseURL, tc.GetTimeoutDuration())
	case "libre":
		backend = translate.NewLibre(tc.BaseURL, tc.APIKey, tc.GetTimeoutDuration())
	default:
		return nil, fmt.Errorf("unknown translation backend %q", tc.Backend)
	}

	var enhancer translate.Enhancer
	switch {
	case !ec.Enabled:
	case ec.APIKey == "":
		log.Warn().Msg("enhancement enabled but no API key set (GROQ_API_KEY); using basic translations")
	default:
		c, err := llm.NewOpenAIClient(ec.APIKey, ec.BaseURL, ec.Model, ec.GetTimeoutDuration())
		if err != nil {
			return nil, err
		}
		enhancer = c
	}
	return translate.NewService(backend, enhancer)
}

func newSynthesizer(cfg config.SynthesisConfig) (tts.Synthesizer, error) {
	switch cfg.Backend {
	case "google":
		return tts.NewGoogleClient(cfg.BaseURL, cfg.GetTimeoutDuration()), nil
	case "elevenlabs":
		c, err := tts.NewElevenLabsClient(cfg.APIKey, cfg.Voice, cfg.Model, cfg.GetTimeoutDuration())
		if err != nil {
			return nil, err
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		return c, nil
	case "openai":
		return tts.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Voice, cfg.GetTimeoutDuration())
	}
	return nil, fmt.Errorf("unknown synthesis backend %q", cfg.Backend)
}
