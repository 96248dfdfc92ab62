package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the dictation service
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsStopped *prometheus.CounterVec // by stop reason (user, size_limit)
	SessionsEmpty   prometheus.Counter
	SessionBytes    prometheus.Histogram
	SessionDuration prometheus.Histogram

	// Capture metrics
	FramesCaptured prometheus.Counter
	FrameErrors    prometheus.Counter

	// Transcription pipeline metrics
	TasksSubmitted prometheus.Counter
	TasksCompleted prometheus.Counter
	TasksDropped   prometheus.Counter
	QueueSize      prometheus.Gauge

	// Inference metrics
	InferenceDuration prometheus.Histogram
	InferenceFailures prometheus.Counter
	SinkErrors        prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsStopped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_sessions_stopped_total",
			Help: "Total number of recording sessions stopped",
		}, []string{"reason"}),
		SessionsEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_sessions_empty_total",
			Help: "Total number of sessions discarded with no captured audio",
		}),
		SessionBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_session_bytes",
			Help:    "Size of completed recording sessions in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 12), // 16KB to ~32MB
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_session_duration_seconds",
			Help:    "Duration of recording sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),

		// Capture metrics
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_frames_captured_total",
			Help: "Total number of audio frames appended to session buffers",
		}),
		FrameErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_frame_errors_total",
			Help: "Total number of frames dropped due to conversion or append errors",
		}),

		// Transcription pipeline metrics
		TasksSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_tasks_submitted_total",
			Help: "Total number of transcription tasks enqueued",
		}),
		TasksCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_tasks_completed_total",
			Help: "Total number of transcription tasks completed",
		}),
		TasksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_tasks_dropped_total",
			Help: "Total number of transcription tasks dropped on a full queue",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dictation_task_queue_size",
			Help: "Current number of tasks waiting in the transcription queue",
		}),

		// Inference metrics
		InferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_inference_duration_seconds",
			Help:    "Duration of inference service calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		InferenceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_inference_failures_total",
			Help: "Total number of failed inference service calls",
		}),
		SinkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_sink_errors_total",
			Help: "Total number of panics recovered from the result sink",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dictation_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionStarted increments the sessions started counter
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
}

// RecordSessionStopped records a stopped session with its stop reason
func (m *Metrics) RecordSessionStopped(reason string, bytes int64, durationSeconds float64) {
	m.SessionsStopped.WithLabelValues(reason).Inc()
	m.SessionBytes.Observe(float64(bytes))
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionEmpty increments the discarded-empty-session counter
func (m *Metrics) RecordSessionEmpty() {
	m.SessionsEmpty.Inc()
}

// RecordFrameCaptured increments the frames captured counter
func (m *Metrics) RecordFrameCaptured() {
	m.FramesCaptured.Inc()
}

// RecordFrameError increments the frame errors counter
func (m *Metrics) RecordFrameError() {
	m.FrameErrors.Inc()
}

// RecordTaskSubmitted increments the tasks submitted counter
func (m *Metrics) RecordTaskSubmitted() {
	m.TasksSubmitted.Inc()
}

// RecordTaskCompleted increments the tasks completed counter
func (m *Metrics) RecordTaskCompleted() {
	m.TasksCompleted.Inc()
}

// RecordTaskDropped increments the tasks dropped counter
func (m *Metrics) RecordTaskDropped() {
	m.TasksDropped.Inc()
}

// SetQueueSize sets the current transcription queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// RecordInference records an inference call outcome
func (m *Metrics) RecordInference(durationSeconds float64, success bool) {
	m.InferenceDuration.Observe(durationSeconds)
	if !success {
		m.InferenceFailures.Inc()
	}
}

// RecordSinkError increments the result sink error counter
func (m *Metrics) RecordSinkError() {
	m.SinkErrors.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
