package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/metrics"
	"github.com/mrsingh-rishi/voice-translator/model"
	"github.com/mrsingh-rishi/voice-translator/queue"
	"github.com/mrsingh-rishi/voice-translator/stt"
	"github.com/mrsingh-rishi/voice-translator/translate"
	"github.com/mrsingh-rishi/voice-translator/tts"
)

// Translation is the translate-then-enhance step; *translate.Service implements it.
type Translation interface {
	Translate(ctx context.Context, text, target, source string) translate.Result
	Enhance(ctx context.Context, original, basic string) string
}

// Playback plays one clip and returns when it has finished; *output.Player implements it.
type Playback interface {
	Play(ctx context.Context, clip model.PlaybackClip) error
}

// ResultSink receives every utterance that made it through translation.
type ResultSink func(model.TranslationResult)

// Stages bundles the collaborators one utterance passes through.
type Stages struct {
	Transcriber stt.Transcriber
	Translation Translation
	Synthesizer tts.Synthesizer
	Playback    Playback
}

// ProcessingWorker drains the queue one utterance at a time.
type ProcessingWorker struct {
	stages  Stages
	Queue   *queue.Queue[model.Utterance]
	Running *atomic.Bool
	Target  string
	Source  string
	Sink    ResultSink
	Metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewProcessingWorker(stages Stages, q *queue.Queue[model.Utterance], running *atomic.Bool, target, source string) (*ProcessingWorker, error) {
	// Params Validation
	if stages.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if stages.Translation == nil {
		return nil, fmt.Errorf("translation is required")
	}
	if stages.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if stages.Playback == nil {
		return nil, fmt.Errorf("playback is required")
	}
	if q == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if running == nil {
		return nil, fmt.Errorf("running flag is required")
	}
	return &ProcessingWorker{
		stages:  stages,
		Queue:   q,
		Running: running,
		Target:  target,
		Source:  source,
		logger:  log.With().Str("component", "processing").Logger(),
	}, nil
}

// Run processes utterances until the running flag clears, stop is closed or ctx ends.
// A stop request takes effect between utterances; the one in flight completes.
func (w *ProcessingWorker) Run(ctx context.Context, stop <-chan struct{}) {
	for w.Running.Load() {
		u, ok := w.next(ctx, stop)
		if !ok {
			return
		}
		w.Metrics.SetQueueSize(w.Queue.Len())
		w.Process(ctx, u)
	}
}

// next blocks until an utterance is available; ok is false when asked to stop.
func (w *ProcessingWorker) next(ctx context.Context, stop <-chan struct{}) (model.Utterance, bool) {
	for {
		if !w.Running.Load() {
			return model.Utterance{}, false
		}
		if u, ok := w.Queue.Dequeue(); ok {
			return u, true
		}
		select {
		case <-w.Queue.Ready():
		case <-stop:
			return model.Utterance{}, false
		case <-ctx.Done():
			return model.Utterance{}, false
		}
	}
}

// Process runs one utterance through every stage, each attempted once. Failures are
// logged and end processing of this utterance only.
func (w *ProcessingWorker) Process(ctx context.Context, u model.Utterance) {
	started := time.Now()
	logger := w.logger.With().Str("utterance", u.ID.String()).Logger()

	hint := u.SourceHint
	if hint == "" {
		hint = w.Source
	}
	text, err := w.stages.Transcriber.Transcribe(ctx, u, hint)
	if err != nil {
		w.Metrics.RecordDropped(metrics.StageTranscription)
		var svcErr *stt.ServiceError
		switch {
		case errors.Is(err, stt.ErrNotUnderstood):
			logger.Info().Msg("could not understand audio")
		case errors.As(err, &svcErr):
			logger.Error().Err(err).Str("backend", svcErr.Backend).Msg("speech recognition service error")
		default:
			logger.Error().Err(err).Msg("transcription failed")
		}
		return
	}
	logger.Info().Str("text", text).Msg("recognized")

	basic := w.stages.Translation.Translate(ctx, text, w.Target, hint)
	if !basic.OK() {
		w.Metrics.RecordTranslationFailure()
		logger.Warn().Err(basic.Err).Msg("basic translation failed")
	}
	enhanced := w.stages.Translation.Enhance(ctx, text, basic.Text)
	logger.Info().Str("basic", basic.Text).Str("enhanced", enhanced).Msg("translated")

	if w.Sink != nil {
		w.Sink(model.TranslationResult{
			UtteranceID:         u.ID.String(),
			OriginalText:        text,
			BasicTranslation:    basic.Text,
			EnhancedTranslation: enhanced,
			SourceCode:          hint,
			TargetCode:          w.Target,
		})
	}

	speech, err := w.stages.Synthesizer.Synthesize(ctx, enhanced, w.Target)
	if err == nil && len(speech) == 0 {
		err = errors.New("synthesizer returned no audio")
	}
	if err != nil {
		w.Metrics.RecordDropped(metrics.StageSynthesis)
		logger.Error().Err(err).Msg("speech synthesis failed")
		return
	}

	if err := w.stages.Playback.Play(ctx, model.PlaybackClip{Audio: speech, Language: w.Target}); err != nil {
		w.Metrics.RecordDropped(metrics.StagePlayback)
		logger.Error().Err(err).Msg("playback failed")
		return
	}
	w.Metrics.RecordProcessed(time.Since(started).Seconds())
}
