package audio

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Source produces fixed-size PCM frames into a frame queue. Start and Stop
// bracket one recording session; Flush discards anything still queued.
type Source interface {
	Start() error
	Stop()
	Flush()
	Queue() *FrameQueue
}

// CommandSource captures audio by running an external raw-PCM recorder
// (arecord or compatible) and slicing its stdout into block-sized frames.
// The device layer stays outside the process, matching how the service treats
// audio I/O as an external collaborator.
type CommandSource struct {
	command    string
	device     string
	sampleRate int
	blockSize  int // samples per frame

	queue  *FrameQueue
	logger *slog.Logger

	cmd        *exec.Cmd
	readerDone chan struct{}
	running    atomic.Bool
	dropped    atomic.Uint64

	mu sync.Mutex
}

// NewCommandSource creates a capture source backed by an external recorder
// process. An empty command defaults to arecord.
func NewCommandSource(command, device string, sampleRate, blockSize int, logger *slog.Logger) *CommandSource {
	if command == "" {
		command = "arecord"
	}

	return &CommandSource{
		command:    command,
		device:     device,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		queue:      NewFrameQueue(512),
		logger:     logger,
	}
}

// Queue returns the frame queue this source feeds.
func (s *CommandSource) Queue() *FrameQueue {
	return s.queue
}

// Start launches the recorder process and the reader goroutine.
func (s *CommandSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	args := []string{
		"-q",
		"-t", "raw",
		"-f", "S16_LE",
		"-c", "1",
		"-r", fmt.Sprintf("%d", s.sampleRate),
	}
	if s.device != "" {
		args = append(args, "-D", s.device)
	}

	cmd := exec.Command(s.command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open capture pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start capture command %s: %w", s.command, err)
	}

	s.cmd = cmd
	s.readerDone = make(chan struct{})
	s.running.Store(true)

	s.logger.Info("Capture source started",
		slog.String("command", s.command),
		slog.String("device", s.device),
		slog.Int("sample_rate", s.sampleRate),
		slog.Int("block_samples", s.blockSize),
	)

	go s.readLoop(stdout)

	return nil
}

// readLoop slices the recorder's stdout into block-sized frames and pushes
// them onto the queue until the process exits or Stop kills it.
func (s *CommandSource) readLoop(stdout io.Reader) {
	defer close(s.readerDone)

	raw := make([]byte, s.blockSize*2)
	for {
		if _, err := io.ReadFull(stdout, raw); err != nil {
			if s.running.Load() {
				s.logger.Warn("Capture stream ended", slog.String("error", err.Error()))
			}
			return
		}

		frame, err := SamplesFromBytes(raw)
		if err != nil {
			// Cannot happen with an even block size, but a frame conversion
			// failure must never kill the capture stream.
			s.logger.Error("Dropping unconvertible frame", slog.String("error", err.Error()))
			continue
		}

		if !s.queue.Push(frame) {
			dropped := s.dropped.Add(1)
			if dropped%100 == 1 {
				s.logger.Warn("Frame queue full, dropping frames",
					slog.Uint64("total_dropped", dropped),
				)
			}
		}
	}
}

// Stop terminates the recorder process and waits for the reader to exit.
func (s *CommandSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return
	}
	s.running.Store(false)

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}

	if s.readerDone != nil {
		<-s.readerDone
	}

	s.cmd = nil
	s.logger.Debug("Capture source stopped", slog.Uint64("frames_dropped", s.dropped.Load()))
}

// Flush discards all queued frames.
func (s *CommandSource) Flush() {
	s.queue.Flush()
}

// SyntheticSource generates a sine tone at the capture cadence. It stands in
// for a real device in development runs and in the root test utility.
type SyntheticSource struct {
	sampleRate int
	blockSize  int
	frequency  float64

	queue  *FrameQueue
	ticker *time.Ticker
	done   chan struct{}

	phase   float64
	running atomic.Bool

	mu sync.Mutex
}

// NewSyntheticSource creates a tone-generating source.
func NewSyntheticSource(sampleRate, blockSize int, frequency float64) *SyntheticSource {
	if frequency <= 0 {
		frequency = 440
	}
	return &SyntheticSource{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		frequency:  frequency,
		queue:      NewFrameQueue(512),
	}
}

// Queue returns the frame queue this source feeds.
func (s *SyntheticSource) Queue() *FrameQueue {
	return s.queue
}

// Start begins emitting one frame per block interval.
func (s *SyntheticSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	interval := time.Duration(s.blockSize) * time.Second / time.Duration(s.sampleRate)
	s.ticker = time.NewTicker(interval)
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-s.ticker.C:
				s.queue.Push(s.nextFrame())
			}
		}
	}()

	return nil
}

func (s *SyntheticSource) nextFrame() Frame {
	frame := make(Frame, s.blockSize)
	step := 2 * math.Pi * s.frequency / float64(s.sampleRate)
	for i := range frame {
		frame[i] = int16(8000 * math.Sin(s.phase))
		s.phase += step
	}
	return frame
}

// Stop halts tone generation.
func (s *SyntheticSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return
	}
	s.running.Store(false)

	s.ticker.Stop()
	close(s.done)
}

// Flush discards all queued frames.
func (s *SyntheticSource) Flush() {
	s.queue.Flush()
}
