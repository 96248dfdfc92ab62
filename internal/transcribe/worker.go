package transcribe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skypro1111/dictation-service/internal/audio"
	"github.com/skypro1111/dictation-service/internal/metrics"
)

const (
	// QueueCapacity bounds the number of pending sessions awaiting
	// transcription. A full queue drops new tasks instead of blocking the
	// caller; at 10 queued sessions the raw-audio memory footprint is the
	// only backpressure mechanism this pipeline has.
	QueueCapacity = 10

	// DefaultDrainTimeout is how long Stop waits for queued tasks to finish
	// before abandoning them.
	DefaultDrainTimeout = 3 * time.Second

	dequeueTimeout = 1 * time.Second
	joinTimeout    = 2 * time.Second
)

// Task is one completed session's audio awaiting transcription.
type Task struct {
	SessionID  uint64
	Samples    audio.Frame
	SampleRate int
}

// WorkerStats represents pipeline counters for monitoring
type WorkerStats struct {
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Pending   int    `json:"pending"`
	Active    bool   `json:"active"`
}

// Worker consumes the bounded task queue with exactly one goroutine, so at
// most one transcription is in flight at a time and results complete in
// submission order.
type Worker struct {
	service      Service
	sink         ResultSink
	opts         Options
	snapshotPath string // most-recent-session WAV, empty disables
	logger       *slog.Logger
	metrics      *metrics.Metrics

	// A nil task on the queue is the stop sentinel: the worker exits without
	// draining further.
	queue chan *Task
	done  chan struct{}

	running atomic.Bool
	active  atomic.Bool

	submitted atomic.Uint64
	completed atomic.Uint64

	mu sync.Mutex
}

// WorkerConfig contains worker construction parameters
type WorkerConfig struct {
	Options      Options
	SnapshotPath string
}

// NewWorker creates the transcription worker. Start must be called before
// tasks are submitted.
func NewWorker(cfg WorkerConfig, service Service, sink ResultSink, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		service:      service,
		sink:         sink,
		opts:         cfg.Options,
		snapshotPath: cfg.SnapshotPath,
		logger:       logger,
		metrics:      m,
		queue:        make(chan *Task, QueueCapacity),
	}
}

// Start launches the worker goroutine. Calling Start on a running worker is
// a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		w.logger.Debug("Transcription worker already running")
		return
	}

	w.running.Store(true)
	w.done = make(chan struct{})
	go w.loop()

	w.logger.Info("Transcription worker started")
}

// Submit enqueues a task without blocking. It reports false when the queue is
// full; the task is dropped and the session is still considered closed.
func (w *Worker) Submit(task *Task) bool {
	select {
	case w.queue <- task:
		w.submitted.Add(1)
		if w.metrics != nil {
			w.metrics.RecordTaskSubmitted()
			w.metrics.SetQueueSize(len(w.queue))
		}
		return true
	default:
		if w.metrics != nil {
			w.metrics.RecordTaskDropped()
		}
		return false
	}
}

// loop is the single consumer of the task queue.
func (w *Worker) loop() {
	defer close(w.done)

	w.logger.Info("Transcription worker loop running")

	for w.running.Load() {
		timer := time.NewTimer(dequeueTimeout)
		var task *Task
		select {
		case task = <-w.queue:
			timer.Stop()
		case <-timer.C:
			// Queue empty, re-check the running flag.
			continue
		}

		if task == nil {
			w.logger.Debug("Stop sentinel received, transcription worker exiting")
			break
		}

		w.active.Store(true)
		w.logger.Info("Processing transcription task",
			slog.Uint64("session_id", task.SessionID),
			slog.Uint64("task_number", w.completed.Load()+1),
			slog.Int("queue_remaining", len(w.queue)),
		)

		w.processTask(task)

		w.active.Store(false)
		w.completed.Add(1)
		if w.metrics != nil {
			w.metrics.RecordTaskCompleted()
			w.metrics.SetQueueSize(len(w.queue))
		}
	}

	w.logger.Info("Transcription worker loop exited")
}

// processTask runs one inference call and delivers its result to the sink.
// Neither an inference failure nor a sink panic may escape to the loop.
func (w *Worker) processTask(task *Task) {
	wavData, err := audio.EncodeWAV(task.Samples, task.SampleRate)
	if err != nil {
		w.logger.Error("Failed to encode session audio",
			slog.Uint64("session_id", task.SessionID),
			slog.String("error", err.Error()),
		)
		w.deliver(Result{SessionID: task.SessionID, Error: err.Error()})
		return
	}

	if w.snapshotPath != "" {
		if err := audio.WriteWAVSnapshot(w.snapshotPath, wavData); err != nil {
			w.logger.Warn("Failed to write session snapshot",
				slog.String("path", w.snapshotPath),
				slog.String("error", err.Error()),
			)
		}
	}

	startTime := time.Now()
	resp, err := w.service.Transcribe(context.Background(), wavData, w.opts)
	latency := time.Since(startTime)

	if w.metrics != nil {
		w.metrics.RecordInference(latency.Seconds(), err == nil)
	}

	if err != nil {
		w.logger.Error("Inference failed",
			slog.Uint64("session_id", task.SessionID),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		w.deliver(Result{
			SessionID:        task.SessionID,
			InferenceLatency: latency,
			Error:            err.Error(),
		})
		return
	}

	w.logger.Info("Transcription completed",
		slog.Uint64("session_id", task.SessionID),
		slog.Float64("audio_duration", resp.Duration),
		slog.Duration("latency", latency),
		slog.Float64("confidence", resp.Confidence),
	)

	w.deliver(Result{
		SessionID:        task.SessionID,
		Text:             resp.Text,
		RawText:          resp.RawText,
		Duration:         resp.Duration,
		InferenceLatency: latency,
		Confidence:       resp.Confidence,
	})
}

// deliver invokes the result sink, containing any panic it raises.
func (w *Worker) deliver(result Result) {
	if w.sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Result sink panicked",
				slog.Uint64("session_id", result.SessionID),
				slog.Any("panic", r),
			)
			if w.metrics != nil {
				w.metrics.RecordSinkError()
			}
		}
	}()

	w.sink(result)
}

// Stop drains the queue and shuts the worker down. It waits up to
// drainTimeout for queued tasks to complete, then abandons whatever remains,
// pushes the stop sentinel, and gives the worker goroutine a bounded time to
// exit. A drainTimeout <= 0 uses DefaultDrainTimeout.
func (w *Worker) Stop(drainTimeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Load() {
		w.logger.Debug("Transcription worker not running")
		return
	}

	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}

	if pending := len(w.queue); pending > 0 {
		w.logger.Info("Stopping transcription worker, draining queue",
			slog.Int("pending", pending),
			slog.Duration("drain_timeout", drainTimeout),
		)
	} else {
		w.logger.Info("Stopping transcription worker")
	}

	// Wait for the queue to empty, bounded by drainTimeout.
	deadline := time.Now().Add(drainTimeout)
	for len(w.queue) > 0 {
		if time.Now().After(deadline) {
			w.logger.Warn("Drain timeout exceeded, abandoning queued tasks",
				slog.Int("abandoned", len(w.queue)),
				slog.Duration("drain_timeout", drainTimeout),
			)
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	w.running.Store(false)

	select {
	case w.queue <- nil:
	default:
		w.logger.Warn("Task queue full, could not push stop sentinel")
	}

	select {
	case <-w.done:
	case <-time.After(joinTimeout):
		w.logger.Warn("Transcription worker did not exit in time, continuing shutdown",
			slog.Duration("join_timeout", joinTimeout),
		)
	}

	w.logger.Info("Transcription worker stopped",
		slog.Uint64("completed", w.completed.Load()),
		slog.Uint64("submitted", w.submitted.Load()),
	)
}

// Pending returns the number of tasks waiting in the queue.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// IsTranscribing reports whether a task is being processed or waiting.
func (w *Worker) IsTranscribing() bool {
	return w.active.Load() || len(w.queue) > 0
}

// GetStats returns current pipeline counters
func (w *Worker) GetStats() WorkerStats {
	return WorkerStats{
		Submitted: w.submitted.Load(),
		Completed: w.completed.Load(),
		Pending:   len(w.queue),
		Active:    w.active.Load(),
	}
}
