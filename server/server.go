// Package server exposes translation, the live pipeline and its results over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/audio"
	"github.com/mrsingh-rishi/voice-translator/language"
	"github.com/mrsingh-rishi/voice-translator/metrics"
	"github.com/mrsingh-rishi/voice-translator/model"
	"github.com/mrsingh-rishi/voice-translator/pipeline"
	"github.com/mrsingh-rishi/voice-translator/stt"
	"github.com/mrsingh-rishi/voice-translator/translate"
	"github.com/mrsingh-rishi/voice-translator/tts"
)

// uploads are resampled to what the recognizers expect
const uploadSampleRate = 16000

// Pipeline is the live translation controller; *pipeline.Controller implements it.
type Pipeline interface {
	Start(ctx context.Context) error
	Stop()
	Status() pipeline.Status
	SetLanguages(target, source string) error
}

// Deps are the services behind the API. Pipeline may be nil when no microphone
// is available; the pipeline routes then answer 503.
type Deps struct {
	Translation *translate.Service
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Pipeline    Pipeline
	Hub         *Hub
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
}

type Server struct {
	app     *fiber.App
	deps    Deps
	baseCtx context.Context
	logger  zerolog.Logger
}

// New builds the fiber app. baseCtx outlives individual requests and bounds any
// pipeline run started over HTTP.
func New(baseCtx context.Context, bodyLimitMB int, deps Deps) *Server {
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "voice-translator",
			BodyLimit:             bodyLimitMB * 1024 * 1024,
			DisableStartupMessage: true,
		}),
		deps:    deps,
		baseCtx: baseCtx,
		logger:  log.With().Str("component", "http").Logger(),
	}
	s.routes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) routes() {
	s.app.Use(s.withMetrics)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	s.app.Get("/languages", s.handleLanguages)
	s.app.Post("/translate", s.handleTranslate)
	s.app.Post("/translate-audio", s.handleTranslateAudio)

	s.app.Post("/pipeline/start", s.handlePipelineStart)
	s.app.Post("/pipeline/stop", s.handlePipelineStop)
	s.app.Get("/pipeline/status", s.handlePipelineStatus)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/results", websocket.New(s.deps.Hub.serve))

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
}

// withMetrics records every request's route, status and duration.
func (s *Server) withMetrics(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	s.deps.Metrics.RecordHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start).Seconds())
	return err
}

type languageEntry struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (s *Server) handleLanguages(c *fiber.Ctx) error {
	names := language.KnownNames()
	out := make([]languageEntry, 0, len(names))
	for _, n := range names {
		out = append(out, languageEntry{Name: n, Code: string(language.Resolve(n))})
	}
	return c.JSON(fiber.Map{"languages": out})
}

type translateRequest struct {
	Text     string `json:"text"`
	SrcLang  string `json:"srcLang"`
	DestLang string `json:"destLang"`
}

func (s *Server) handleTranslate(c *fiber.Ctx) error {
	var req translateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Text == "" || req.DestLang == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`text` and `destLang` fields are required"})
	}
	target := language.Resolve(req.DestLang)
	source := language.ResolveSource(req.SrcLang)
	if req.SrcLang == "" {
		source = language.Auto
	}
	text := s.deps.Translation.TranslateText(c.UserContext(), req.Text, string(target), string(source))
	return c.JSON(fiber.Map{"translatedText": text})
}

type audioTranslation struct {
	RecognizedText   string `json:"recognized_text"`
	BasicTranslation string `json:"basic_translation"`
	AITranslation    string `json:"ai_translation"`
	AudioBase64      string `json:"audio_base64"`
}

func (s *Server) handleTranslateAudio(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No audio file provided"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No audio file provided"})
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil || len(data) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No audio file provided"})
	}

	source := language.ResolveSource(c.FormValue("source_lang", string(language.Auto)))
	target := language.Resolve(c.FormValue("target_lang", string(language.Default)))
	ctx := c.UserContext()
	logger := s.logger.With().Str("target", string(target)).Str("source", string(source)).Logger()

	if !audio.IsWAV(data) {
		data, err = audio.ConvertToWAV(ctx, data, uploadSampleRate)
		if err != nil {
			logger.Warn().Err(err).Msg("audio conversion failed")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported audio format: " + err.Error()})
		}
	}
	pcm, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid WAV file: " + err.Error()})
	}

	u := model.NewUtterance(pcm, rate, string(source))
	text, err := s.deps.Transcriber.Transcribe(ctx, u, string(source))
	if err != nil {
		if errors.Is(err, stt.ErrNotUnderstood) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Could not understand the audio"})
		}
		logger.Error().Err(err).Msg("speech recognition failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Speech recognition error: " + err.Error()})
	}

	basic := s.deps.Translation.Translate(ctx, text, string(target), string(source))
	enhanced := s.deps.Translation.Enhance(ctx, text, basic.Text)

	speech, err := s.deps.Synthesizer.Synthesize(ctx, enhanced, string(target))
	if err != nil {
		logger.Error().Err(err).Msg("speech synthesis failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Text-to-speech error: " + err.Error()})
	}

	s.deps.Hub.Publish(model.TranslationResult{
		UtteranceID:         u.ID.String(),
		OriginalText:        text,
		BasicTranslation:    basic.Text,
		EnhancedTranslation: enhanced,
		SourceCode:          string(source),
		TargetCode:          string(target),
	})
	return c.JSON(audioTranslation{
		RecognizedText:   text,
		BasicTranslation: basic.Text,
		AITranslation:    enhanced,
		AudioBase64:      base64.StdEncoding.EncodeToString(speech),
	})
}

type startRequest struct {
	Target string `json:"target"`
	Source string `json:"source"`
}

func (s *Server) handlePipelineStart(c *fiber.Ctx) error {
	if s.deps.Pipeline == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "live pipeline not available"})
	}
	var req startRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
	}
	if req.Target != "" || req.Source != "" {
		st := s.deps.Pipeline.Status()
		target, source := req.Target, req.Source
		if target == "" {
			target = st.Target
		}
		if source == "" {
			source = st.Source
		}
		if err := s.deps.Pipeline.SetLanguages(target, source); err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if err := s.deps.Pipeline.Start(s.baseCtx); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) || errors.Is(err, pipeline.ErrStopping) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.deps.Pipeline.Status())
}

func (s *Server) handlePipelineStop(c *fiber.Ctx) error {
	if s.deps.Pipeline == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "live pipeline not available"})
	}
	s.deps.Pipeline.Stop()
	return c.JSON(s.deps.Pipeline.Status())
}

func (s *Server) handlePipelineStatus(c *fiber.Ctx) error {
	if s.deps.Pipeline == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "live pipeline not available"})
	}
	return c.JSON(s.deps.Pipeline.Status())
}
