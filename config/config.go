package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete translator configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Capture       CaptureConfig       `yaml:"capture"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Translation   TranslationConfig   `yaml:"translation"`
	Enhancement   EnhancementConfig   `yaml:"enhancement"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Playback      PlaybackConfig      `yaml:"playback"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP API server configuration
type ServerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
}

// PipelineConfig holds the default language pair for live translation
type PipelineConfig struct {
	Target    string `yaml:"target"`
	Source    string `yaml:"source"`
	AutoStart bool   `yaml:"auto_start"`
}

// CaptureConfig contains microphone and speech detection parameters
type CaptureConfig struct {
	SampleRate         int     `yaml:"sample_rate"`
	FramesPerBuffer    int     `yaml:"frames_per_buffer"`
	EnergyThreshold    float64 `yaml:"energy_threshold"`
	MinEnergyThreshold float64 `yaml:"min_energy_threshold"`
	DynamicEnergy      bool    `yaml:"dynamic_energy"`
	DynamicDamping     float64 `yaml:"dynamic_damping"`
	DynamicRatio       float64 `yaml:"dynamic_ratio"`
	PauseThreshold     float64 `yaml:"pause_threshold"` // seconds
	NonSpeaking        float64 `yaml:"non_speaking"`    // seconds
	Calibration        float64 `yaml:"calibration"`     // seconds
	PhraseLimit        float64 `yaml:"phrase_limit"`    // seconds
	WaitTimeout        float64 `yaml:"wait_timeout"`    // seconds, default 5; 0 waits for speech forever
}

// TranscriptionConfig selects and configures the speech recognition backend
type TranscriptionConfig struct {
	Backend          string `yaml:"backend"` // openai, deepgram, whisper
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Timeout          int    `yaml:"timeout"` // seconds
	WhisperModelPath string `yaml:"whisper_model_path"`
	WhisperThreads   int    `yaml:"whisper_threads"`
}

// TranslationConfig selects the machine translation backend
type TranslationConfig struct {
	Backend string `yaml:"backend"` // google, libre
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout int    `yaml:"timeout"` // seconds
}

// EnhancementConfig configures the language-model refinement pass
type EnhancementConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // seconds
}

// SynthesisConfig selects the text-to-speech backend
type SynthesisConfig struct {
	Backend string `yaml:"backend"` // google, elevenlabs, openai
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Voice   string `yaml:"voice"`
	Timeout int    `yaml:"timeout"` // seconds
}

// PlaybackConfig tunes the audio output
type PlaybackConfig struct {
	SampleRate   int `yaml:"sample_rate"`
	PollInterval int `yaml:"poll_interval_ms"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:     true,
			Address:     ":5000",
			BodyLimitMB: 25,
		},
		Pipeline: PipelineConfig{
			Target: "en",
			Source: "auto",
		},
		Capture: CaptureConfig{
			SampleRate:         16000,
			FramesPerBuffer:    320,
			EnergyThreshold:    300,
			MinEnergyThreshold: 50,
			DynamicDamping:     0.15,
			DynamicRatio:       1.5,
			PauseThreshold:     0.8,
			NonSpeaking:        0.5,
			Calibration:        2,
			PhraseLimit:        3,
			WaitTimeout:        5,
		},
		Transcription: TranscriptionConfig{
			Backend:        "openai",
			Timeout:        30,
			WhisperThreads: 4,
		},
		Translation: TranslationConfig{
			Backend: "google",
			Timeout: 15,
		},
		Enhancement: EnhancementConfig{
			Enabled: true,
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
			Timeout: 20,
		},
		Synthesis: SynthesisConfig{
			Backend: "google",
			Timeout: 20,
		},
		Playback: PlaybackConfig{
			SampleRate:   44100,
			PollInterval: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .env files, the YAML file at path (optional) and environment overrides,
// then validates the result. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	// .env is optional; variables already set in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	config.applyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// applyEnv overrides secrets and common settings from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Logging.Level, "LOG_LEVEL")
	set(&c.Server.Address, "TRANSLATOR_ADDR")
	set(&c.Pipeline.Target, "TARGET_LANG")
	set(&c.Pipeline.Source, "SOURCE_LANG")
	set(&c.Enhancement.APIKey, "GROQ_API_KEY")

	switch c.Transcription.Backend {
	case "openai":
		set(&c.Transcription.APIKey, "OPENAI_API_KEY")
	case "deepgram":
		set(&c.Transcription.APIKey, "DEEPGRAM_API_KEY")
	}
	switch c.Synthesis.Backend {
	case "openai":
		set(&c.Synthesis.APIKey, "OPENAI_API_KEY")
	case "elevenlabs":
		set(&c.Synthesis.APIKey, "ELEVEN_LABS_API_KEY")
	}
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	if err := c.Translation.Validate(); err != nil {
		return fmt.Errorf("translation config: %w", err)
	}
	if err := c.Enhancement.Validate(); err != nil {
		return fmt.Errorf("enhancement config: %w", err)
	}
	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates HTTP server configuration
func (s *ServerConfig) Validate() error {
	if s.Enabled && s.Address == "" {
		return fmt.Errorf("address cannot be empty when the server is enabled")
	}
	if s.BodyLimitMB < 1 {
		return fmt.Errorf("body_limit_mb must be at least 1, got %d", s.BodyLimitMB)
	}
	return nil
}

// Validate validates the default language pair. Unknown names are not an error;
// they resolve to English at start.
func (p *PipelineConfig) Validate() error {
	if strings.TrimSpace(p.Target) == "" {
		return fmt.Errorf("target cannot be empty")
	}
	if strings.TrimSpace(p.Source) == "" {
		return fmt.Errorf("source cannot be empty")
	}
	return nil
}

// Validate validates capture configuration
func (a *CaptureConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}
	if a.FramesPerBuffer < 1 {
		return fmt.Errorf("frames_per_buffer must be positive, got %d", a.FramesPerBuffer)
	}
	if a.EnergyThreshold <= 0 {
		return fmt.Errorf("energy_threshold must be positive, got %f", a.EnergyThreshold)
	}
	if a.MinEnergyThreshold < 0 || a.MinEnergyThreshold > a.EnergyThreshold {
		return fmt.Errorf("min_energy_threshold must be between 0 and energy_threshold, got %f", a.MinEnergyThreshold)
	}
	if a.DynamicDamping <= 0 || a.DynamicDamping >= 1 {
		return fmt.Errorf("dynamic_damping must be between 0 and 1 (exclusive), got %f", a.DynamicDamping)
	}
	if a.DynamicRatio < 1 {
		return fmt.Errorf("dynamic_ratio must be at least 1, got %f", a.DynamicRatio)
	}
	if a.PauseThreshold <= 0 {
		return fmt.Errorf("pause_threshold must be positive, got %f", a.PauseThreshold)
	}
	if a.NonSpeaking < 0 || a.NonSpeaking > a.PauseThreshold {
		return fmt.Errorf("non_speaking must be between 0 and pause_threshold, got %f", a.NonSpeaking)
	}
	if a.Calibration <= 0 {
		return fmt.Errorf("calibration must be positive, got %f", a.Calibration)
	}
	if a.PhraseLimit < 0 || a.WaitTimeout < 0 {
		return fmt.Errorf("phrase_limit and wait_timeout cannot be negative")
	}
	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	switch t.Backend {
	case "openai", "deepgram":
		if t.APIKey == "" {
			return fmt.Errorf("api_key cannot be empty for the %s backend", t.Backend)
		}
	case "whisper":
		if t.WhisperModelPath == "" {
			return fmt.Errorf("whisper_model_path cannot be empty for the whisper backend")
		}
		if t.WhisperThreads < 1 {
			return fmt.Errorf("whisper_threads must be at least 1, got %d", t.WhisperThreads)
		}
	default:
		return fmt.Errorf("backend must be one of [openai, deepgram, whisper], got '%s'", t.Backend)
	}
	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}
	return nil
}

// Validate validates translation configuration
func (t *TranslationConfig) Validate() error {
	switch t.Backend {
	case "google":
	case "libre":
		if t.BaseURL == "" {
			return fmt.Errorf("base_url cannot be empty for the libre backend")
		}
	default:
		return fmt.Errorf("backend must be 'google' or 'libre', got '%s'", t.Backend)
	}
	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}
	return nil
}

// Validate validates enhancement configuration
func (e *EnhancementConfig) Validate() error {
	if !e.Enabled {
		return nil
	}
	if e.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", e.Timeout)
	}
	return nil
}

// Validate validates synthesis configuration
func (s *SynthesisConfig) Validate() error {
	switch s.Backend {
	case "google":
	case "elevenlabs", "openai":
		if s.APIKey == "" {
			return fmt.Errorf("api_key cannot be empty for the %s backend", s.Backend)
		}
	default:
		return fmt.Errorf("backend must be one of [google, elevenlabs, openai], got '%s'", s.Backend)
	}
	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}
	return nil
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.SampleRate < 8000 || p.SampleRate > 96000 {
		return fmt.Errorf("sample_rate must be between 8000 and 96000 Hz, got %d", p.SampleRate)
	}
	if p.PollInterval < 1 {
		return fmt.Errorf("poll_interval_ms must be at least 1, got %d", p.PollInterval)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [trace, debug, info, warn, error], got '%s'", l.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// GetPauseThreshold returns the pause threshold as a time.Duration
func (a *CaptureConfig) GetPauseThreshold() time.Duration { return seconds(a.PauseThreshold) }

// GetNonSpeaking returns the pre-roll length as a time.Duration
func (a *CaptureConfig) GetNonSpeaking() time.Duration { return seconds(a.NonSpeaking) }

// GetCalibration returns the ambient calibration length as a time.Duration
func (a *CaptureConfig) GetCalibration() time.Duration { return seconds(a.Calibration) }

// GetPhraseLimit returns the phrase limit as a time.Duration
func (a *CaptureConfig) GetPhraseLimit() time.Duration { return seconds(a.PhraseLimit) }

// GetWaitTimeout returns the listen wait timeout as a time.Duration
func (a *CaptureConfig) GetWaitTimeout() time.Duration { return seconds(a.WaitTimeout) }

// GetFrameDuration returns the duration of one microphone buffer
func (a *CaptureConfig) GetFrameDuration() time.Duration {
	return time.Duration(a.FramesPerBuffer) * time.Second / time.Duration(a.SampleRate)
}

// GetTimeoutDuration returns the request timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the request timeout as a time.Duration
func (t *TranslationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the request timeout as a time.Duration
func (e *EnhancementConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// GetTimeoutDuration returns the request timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetPollInterval returns the device polling interval as a time.Duration
func (p *PlaybackConfig) GetPollInterval() time.Duration {
	return time.Duration(p.PollInterval) * time.Millisecond
}
