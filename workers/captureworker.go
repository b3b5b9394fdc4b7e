package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/capture"
	"github.com/mrsingh-rishi/voice-translator/metrics"
	"github.com/mrsingh-rishi/voice-translator/model"
	"github.com/mrsingh-rishi/voice-translator/queue"
)

const (
	DefaultCalibration = 2 * time.Second
	DefaultPhraseLimit = 3 * time.Second
)

// CaptureWorker listens on the microphone and queues every phrase it hears.
type CaptureWorker struct {
	Source      capture.Source
	Listener    *capture.Listener
	Queue       *queue.Queue[model.Utterance]
	Running     *atomic.Bool
	SourceHint  string
	Calibration time.Duration
	PhraseLimit time.Duration
	WaitTimeout time.Duration // how long one listen waits for speech; 0 waits until ctx ends
	Metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewCaptureWorker(src capture.Source, listener *capture.Listener, q *queue.Queue[model.Utterance], running *atomic.Bool, sourceHint string) (*CaptureWorker, error) {
	// Params Validation
	if src == nil {
		return nil, fmt.Errorf("audio source is required")
	}
	if listener == nil {
		return nil, fmt.Errorf("listener is required")
	}
	if q == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if running == nil {
		return nil, fmt.Errorf("running flag is required")
	}
	return &CaptureWorker{
		Source:      src,
		Listener:    listener,
		Queue:       q,
		Running:     running,
		SourceHint:  sourceHint,
		Calibration: DefaultCalibration,
		PhraseLimit: DefaultPhraseLimit,
		logger:      log.With().Str("component", "capture").Logger(),
	}, nil
}

// Run holds the microphone until the running flag clears or ctx ends. It returns an
// error only when the microphone cannot be used at all.
func (w *CaptureWorker) Run(ctx context.Context) error {
	if err := w.Source.Open(); err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer func() {
		if err := w.Source.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("close microphone")
		}
	}()

	w.logger.Info().Dur("duration", w.Calibration).Msg("adjusting for ambient noise")
	if err := w.Listener.AdjustForAmbientNoise(ctx, w.Source, w.Calibration); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	w.logger.Info().Float64("threshold", w.Listener.Threshold()).Msg("listening")

	for w.Running.Load() {
		pcm, err := w.Listener.Listen(ctx, w.Source, w.WaitTimeout, w.PhraseLimit)
		switch {
		case err == nil:
			u := model.NewUtterance(pcm, w.Source.SampleRate(), w.SourceHint)
			w.Queue.Enqueue(u)
			w.Metrics.RecordCaptured()
			w.Metrics.SetQueueSize(w.Queue.Len())
			w.logger.Debug().Str("utterance", u.ID.String()).Dur("length", u.Duration()).Msg("utterance queued")
		case errors.Is(err, capture.ErrWaitTimeout):
		case ctx.Err() != nil:
			return nil
		default:
			w.Metrics.RecordCaptureError()
			w.logger.Error().Err(err).Msg("listen failed")
		}
	}
	return nil
}
