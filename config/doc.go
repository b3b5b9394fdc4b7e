// Package config loads the translator configuration from YAML, .env files and the
// process environment.
//
// Example configuration:
//
//	server:
//	  enabled: true
//	  address: ":5000"
//	pipeline:
//	  target: hindi
//	  source: auto
//	capture:
//	  sample_rate: 16000
//	  pause_threshold: 0.8
//	  phrase_limit: 3
//	  wait_timeout: 5        # seconds to wait for speech to start, 0 for no limit
//	transcription:
//	  backend: openai        # openai, deepgram, whisper
//	translation:
//	  backend: google        # google, libre
//	enhancement:
//	  enabled: true
//	synthesis:
//	  backend: google        # google, elevenlabs, openai
//	logging:
//	  level: info
//	  format: text
//
// capture.wait_timeout defaults to 5 seconds so an idle capture loop returns
// regularly and notices a stop request. Set it to 0 to wait for speech without a limit.
//
// API keys are normally taken from OPENAI_API_KEY, GROQ_API_KEY, DEEPGRAM_API_KEY and
// ELEVEN_LABS_API_KEY rather than written into the file.
package config
