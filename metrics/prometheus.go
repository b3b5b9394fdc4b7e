package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages that can drop an utterance.
const (
	StageTranscription = "transcription"
	StageSynthesis     = "synthesis"
	StagePlayback      = "playback"
)

// Metrics contains all Prometheus metrics for the translator
type Metrics struct {
	// Capture metrics
	UtterancesCaptured prometheus.Counter
	CaptureErrors      prometheus.Counter
	QueueSize          prometheus.Gauge

	// Processing metrics
	UtterancesProcessed prometheus.Counter
	UtterancesDropped   *prometheus.CounterVec
	TranslationFailures prometheus.Counter
	ProcessingDuration  prometheus.Histogram
	PipelineRunning     prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UtterancesCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "translator_utterances_captured_total",
			Help: "Total number of utterances captured from the microphone",
		}),
		CaptureErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "translator_capture_errors_total",
			Help: "Total number of listen failures other than wait timeouts",
		}),
		QueueSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "translator_queue_size",
			Help: "Current number of utterances waiting to be processed",
		}),

		UtterancesProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "translator_utterances_processed_total",
			Help: "Total number of utterances that reached playback",
		}),
		UtterancesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_utterances_dropped_total",
			Help: "Total number of utterances dropped, by failing stage",
		}, []string{"stage"}),
		TranslationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "translator_translation_failures_total",
			Help: "Total number of basic translations that failed",
		}),
		ProcessingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "translator_processing_duration_seconds",
			Help:    "Time from dequeue to end of playback",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~30s
		}),
		PipelineRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "translator_pipeline_running",
			Help: "1 while the capture and processing loops are running",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "translator_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// The Record methods accept a nil receiver so callers can run without metrics.

func (m *Metrics) RecordCaptured() {
	if m == nil {
		return
	}
	m.UtterancesCaptured.Inc()
}

func (m *Metrics) RecordCaptureError() {
	if m == nil {
		return
	}
	m.CaptureErrors.Inc()
}

// SetQueueSize sets the current queue size
func (m *Metrics) SetQueueSize(size int) {
	if m == nil {
		return
	}
	m.QueueSize.Set(float64(size))
}

// RecordProcessed records an utterance that was played back
func (m *Metrics) RecordProcessed(durationSeconds float64) {
	if m == nil {
		return
	}
	m.UtterancesProcessed.Inc()
	m.ProcessingDuration.Observe(durationSeconds)
}

// RecordDropped records an utterance abandoned at stage
func (m *Metrics) RecordDropped(stage string) {
	if m == nil {
		return
	}
	m.UtterancesDropped.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordTranslationFailure() {
	if m == nil {
		return
	}
	m.TranslationFailures.Inc()
}

func (m *Metrics) SetRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.PipelineRunning.Set(1)
	} else {
		m.PipelineRunning.Set(0)
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
