package session

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skypro1111/dictation-service/internal/audio"
	"github.com/skypro1111/dictation-service/internal/config"
	"github.com/skypro1111/dictation-service/internal/metrics"
	"github.com/skypro1111/dictation-service/internal/transcribe"
)

const (
	// framePollTimeout bounds each wait on the frame queue so the capture
	// loop re-checks the recording flag regularly.
	framePollTimeout = 200 * time.Millisecond

	// captureJoinTimeout bounds how long Stop waits for the capture
	// goroutine of the session it just ended.
	captureJoinTimeout = 5 * time.Second
)

// StopReason records why a session ended.
type StopReason string

const (
	StopReasonUser      StopReason = "user"
	StopReasonSizeLimit StopReason = "size_limit"
)

// Config contains session controller configuration
type Config struct {
	SampleRate      int
	MaxSessionBytes int64 // <=0 falls back to the 20 MiB default
}

// Status represents controller state for monitoring
type Status struct {
	Recording     bool   `json:"recording"`
	SessionID     uint64 `json:"session_id,omitempty"`
	SessionBytes  int64  `json:"session_bytes"`
	SessionFrames uint64 `json:"session_frames"`
	Transcribing  bool   `json:"transcribing"`
	Pending       int    `json:"pending"`
	Submitted     uint64 `json:"submitted"`
	Completed     uint64 `json:"completed"`
}

// Controller owns the recording session lifecycle. At most one session is
// recording at a time; Start while recording and Stop while idle are no-ops.
// Stop never blocks on transcription: a completed session is handed to the
// worker queue and processed after Stop returns.
type Controller struct {
	source  audio.Source
	worker  *transcribe.Worker
	acc     *audio.Accumulator
	logger  *slog.Logger
	metrics *metrics.Metrics

	sampleRate      int
	maxSessionBytes int64

	// State below is guarded by mu. The recording flag is additionally
	// atomic because the capture loop polls it without taking the lock.
	mu             sync.Mutex
	recording      atomic.Bool
	stopRequested  atomic.Bool
	captureDone    chan struct{}
	currentSession uint64
	sessionStart   time.Time

	sessionCounter atomic.Uint64
}

// NewController creates the session controller. A non-positive session byte
// cap falls back to the 20 MiB default with a warning, never an error.
func NewController(cfg Config, source audio.Source, worker *transcribe.Worker, logger *slog.Logger, m *metrics.Metrics) *Controller {
	maxBytes := cfg.MaxSessionBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxSessionBytes
		logger.Warn("Invalid max_session_bytes, falling back to default",
			slog.Int64("configured", cfg.MaxSessionBytes),
			slog.Int64("default", maxBytes),
		)
	}

	return &Controller{
		source:          source,
		worker:          worker,
		acc:             audio.NewAccumulator(),
		logger:          logger,
		metrics:         m,
		sampleRate:      cfg.SampleRate,
		maxSessionBytes: maxBytes,
	}
}

// Start begins a new recording session. Calling Start while a session is
// already recording is a logged no-op.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording.Load() {
		c.logger.Debug("Already recording, ignoring duplicate start")
		return nil
	}

	sessionID := c.sessionCounter.Add(1)
	c.logger.Info("Recording session starting", slog.Uint64("session_id", sessionID))

	c.stopRequested.Store(false)
	c.acc.Clear()

	if err := c.source.Start(); err != nil {
		return fmt.Errorf("failed to start capture source: %w", err)
	}

	c.recording.Store(true)
	c.captureDone = make(chan struct{})
	c.currentSession = sessionID
	c.sessionStart = time.Now()

	go c.captureLoop(c.captureDone)

	if c.metrics != nil {
		c.metrics.RecordSessionStarted()
	}

	return nil
}

// Stop ends the current session and hands its audio to the transcription
// queue without blocking on the transcription itself. fromCapture must be
// true when the call originates inside the capture loop (the size-cap
// self-stop), which skips waiting on that same goroutine.
// Calling Stop while idle is a logged no-op.
func (c *Controller) Stop(fromCapture bool) {
	// Phase one: flip state under the lock and snapshot the capture handle,
	// so a new session can start while slow I/O below is still finishing.
	c.mu.Lock()
	if !c.recording.Load() {
		c.mu.Unlock()
		c.logger.Debug("Not recording, ignoring stop")
		return
	}

	sessionID := c.currentSession
	sessionBytes := c.acc.CurrentBytes()
	reason := StopReasonUser
	if sessionBytes >= c.maxSessionBytes {
		reason = StopReasonSizeLimit
	}
	sessionDuration := time.Since(c.sessionStart)

	c.logger.Info("Recording session stopping",
		slog.Uint64("session_id", sessionID),
		slog.String("reason", string(reason)),
	)

	c.stopRequested.Store(true)
	c.recording.Store(false)

	captureDone := c.captureDone
	c.captureDone = nil
	c.mu.Unlock()

	// Phase two: slow work outside the lock.
	c.source.Stop()

	// A goroutine cannot wait on its own exit; the self-stop path skips the
	// join and the loop unwinds right after this call returns.
	if !fromCapture && captureDone != nil {
		select {
		case <-captureDone:
		case <-time.After(captureJoinTimeout):
			c.logger.Warn("Capture loop did not exit in time",
				slog.Uint64("session_id", sessionID),
				slog.Duration("join_timeout", captureJoinTimeout),
			)
		}
	}

	combined := c.acc.DrainAndClear()
	c.source.Flush()

	if len(combined) == 0 {
		c.logger.Warn("No audio captured, discarding session",
			slog.Uint64("session_id", sessionID),
		)
		if c.metrics != nil {
			c.metrics.RecordSessionEmpty()
		}
		c.clearSession()
		return
	}

	task := &transcribe.Task{
		SessionID:  sessionID,
		Samples:    combined,
		SampleRate: c.sampleRate,
	}

	if c.worker.Submit(task) {
		c.logger.Info("Session submitted for transcription",
			slog.Uint64("session_id", sessionID),
			slog.Int("samples", len(combined)),
			slog.Int("queue_pending", c.worker.Pending()),
		)
	} else {
		c.logger.Error("Transcription queue full, dropping session audio",
			slog.Uint64("session_id", sessionID),
			slog.Int("samples", len(combined)),
		)
	}

	if c.metrics != nil {
		c.metrics.RecordSessionStopped(string(reason), sessionBytes, sessionDuration.Seconds())
	}

	c.clearSession()
}

func (c *Controller) clearSession() {
	c.mu.Lock()
	c.currentSession = 0
	c.mu.Unlock()
}

// captureLoop drains the frame queue into the accumulator until the session
// stops. Runs on its own goroutine for the lifetime of one session.
func (c *Controller) captureLoop(done chan struct{}) {
	defer close(done)

	queue := c.source.Queue()

	for c.recording.Load() {
		frame, ok := queue.Pop(framePollTimeout)
		if !ok {
			// Timeout: loop condition re-checks the recording flag.
			continue
		}

		c.acc.Append(frame)
		if c.metrics != nil {
			c.metrics.RecordFrameCaptured()
		}

		if c.acc.CurrentBytes() >= c.maxSessionBytes && !c.stopRequested.Load() {
			c.logger.Warn("Session size cap reached, stopping automatically",
				slog.Int64("bytes", c.acc.CurrentBytes()),
				slog.Int64("max_bytes", c.maxSessionBytes),
			)
			c.Stop(true)
			break
		}
	}

	c.logger.Debug("Capture loop exiting", slog.Uint64("frames", c.acc.FrameCount()))
}

// IsRecording reports whether a session is currently recording.
func (c *Controller) IsRecording() bool {
	return c.recording.Load()
}

// GetStatus returns a snapshot of controller and pipeline state.
func (c *Controller) GetStatus() Status {
	c.mu.Lock()
	sessionID := c.currentSession
	c.mu.Unlock()

	accStats := c.acc.GetStats()
	workerStats := c.worker.GetStats()

	return Status{
		Recording:     c.recording.Load(),
		SessionID:     sessionID,
		SessionBytes:  accStats.Bytes,
		SessionFrames: accStats.Frames,
		Transcribing:  workerStats.Active || workerStats.Pending > 0,
		Pending:       workerStats.Pending,
		Submitted:     workerStats.Submitted,
		Completed:     workerStats.Completed,
	}
}

// Close stops any active recording and shuts down the transcription worker,
// draining queued tasks within drainTimeout. Used on process shutdown.
func (c *Controller) Close(drainTimeout time.Duration) {
	c.logger.Debug("Closing session controller")

	if c.recording.Load() {
		c.Stop(false)
	}

	c.worker.Stop(drainTimeout)
	c.acc.Clear()

	c.logger.Debug("Session controller closed")
}
