// Package pipeline starts and stops the capture and processing loops as one unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/capture"
	"github.com/mrsingh-rishi/voice-translator/language"
	"github.com/mrsingh-rishi/voice-translator/metrics"
	"github.com/mrsingh-rishi/voice-translator/model"
	"github.com/mrsingh-rishi/voice-translator/queue"
	"github.com/mrsingh-rishi/voice-translator/workers"
)

var (
	ErrAlreadyRunning = errors.New("pipeline is already running")
	ErrStopping       = errors.New("pipeline is still stopping")
	ErrRunning        = errors.New("cannot change languages while the pipeline is running")
)

// State of the controller.
type State string

const (
	Stopped State = "stopped"
	Running State = "running"
)

// Options configure a controller.
type Options struct {
	Target      string
	Source      string
	Listener    capture.ListenerConfig
	Calibration time.Duration
	PhraseLimit time.Duration
	// WaitTimeout bounds each wait for speech so a stop request is noticed during
	// silence. Zero keeps listening until speech or ctx ends.
	WaitTimeout time.Duration
}

// Deps are the collaborators shared by every run.
type Deps struct {
	Microphone capture.Source
	Stages     workers.Stages
	Sink       workers.ResultSink
	Metrics    *metrics.Metrics
}

// Status is a snapshot of the controller.
type Status struct {
	State        State  `json:"state"`
	Target       string `json:"target"`
	Source       string `json:"source"`
	Queued       int    `json:"queued"`
	CaptureError string `json:"capture_error,omitempty"`
}

// Controller owns the utterance queue, the running flag and the two loops.
type Controller struct {
	opts    Options
	deps    Deps
	queue   *queue.Queue[model.Utterance]
	running atomic.Bool

	mu         sync.Mutex
	target     language.Code
	source     language.Code
	stop       chan struct{}
	done       chan struct{}
	captureErr error
	logger     zerolog.Logger
}

func New(opts Options, deps Deps) (*Controller, error) {
	if deps.Microphone == nil {
		return nil, fmt.Errorf("microphone is required")
	}
	st := deps.Stages
	if st.Transcriber == nil || st.Translation == nil || st.Synthesizer == nil || st.Playback == nil {
		return nil, fmt.Errorf("all processing stages are required")
	}
	if opts.Calibration <= 0 {
		opts.Calibration = workers.DefaultCalibration
	}
	if opts.PhraseLimit <= 0 {
		opts.PhraseLimit = workers.DefaultPhraseLimit
	}
	return &Controller{
		opts:   opts,
		deps:   deps,
		queue:  queue.New[model.Utterance](),
		target: language.Resolve(opts.Target),
		source: language.ResolveSource(opts.Source),
		logger: log.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Start launches both loops. ctx bounds the whole run; cancelling it also ends the
// loops, as Stop does.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return ErrAlreadyRunning
	}
	if c.done != nil {
		select {
		case <-c.done:
		default:
			return ErrStopping
		}
	}

	target, source := string(c.target), string(c.source)
	capW, err := workers.NewCaptureWorker(c.deps.Microphone, capture.NewListener(c.opts.Listener), c.queue, &c.running, source)
	if err != nil {
		return err
	}
	capW.Calibration = c.opts.Calibration
	capW.PhraseLimit = c.opts.PhraseLimit
	capW.WaitTimeout = c.opts.WaitTimeout
	capW.Metrics = c.deps.Metrics

	procW, err := workers.NewProcessingWorker(c.deps.Stages, c.queue, &c.running, target, source)
	if err != nil {
		return err
	}
	procW.Sink = c.deps.Sink
	procW.Metrics = c.deps.Metrics

	if n := c.queue.Clear(); n > 0 {
		c.logger.Info().Int("dropped", n).Msg("discarded utterances from previous run")
	}
	c.deps.Metrics.SetQueueSize(0)
	c.captureErr = nil
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.running.Store(true)
	c.deps.Metrics.SetRunning(true)

	stop, done := c.stop, c.done
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := capW.Run(ctx); err != nil {
			c.logger.Error().Err(err).Msg("capture loop failed, stopping pipeline")
			c.mu.Lock()
			c.captureErr = err
			c.mu.Unlock()
			c.Stop()
		}
	}()
	go func() {
		defer wg.Done()
		procW.Run(ctx, stop)
	}()
	go func() {
		wg.Wait()
		c.running.Store(false)
		c.deps.Metrics.SetRunning(false)
		close(done)
		c.logger.Info().Msg("pipeline stopped")
	}()

	c.logger.Info().Str("target", target).Str("source", source).Msg("pipeline started")
	return nil
}

// Stop asks both loops to finish and returns immediately. The utterance being
// processed, and a listen in progress, run to completion.
func (c *Controller) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	close(c.stop)
	c.mu.Unlock()
	c.logger.Info().Msg("stop requested")
}

// Wait blocks until the loops of the last run have exited.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the loops are active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		State:  Stopped,
		Target: string(c.target),
		Source: string(c.source),
		Queued: c.queue.Len(),
	}
	if c.running.Load() {
		st.State = Running
	}
	if c.captureErr != nil {
		st.CaptureError = c.captureErr.Error()
	}
	return st
}

// SetLanguages changes the language pair for the next run.
func (c *Controller) SetLanguages(target, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return ErrRunning
	}
	c.target = language.Resolve(target)
	c.source = language.ResolveSource(source)
	return nil
}
