package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/skypro1111/dictation-service/internal/audio"
)

// fakeService answers transcription calls with canned responses.
type fakeService struct {
	delay    time.Duration
	fail     bool
	initFail bool

	mu    sync.Mutex
	calls int
}

func (s *fakeService) Initialize(ctx context.Context) error {
	if s.initFail {
		return fmt.Errorf("engine unavailable")
	}
	return nil
}

func (s *fakeService) Transcribe(ctx context.Context, wavData []byte, opts Options) (*Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fail {
		return nil, fmt.Errorf("inference error")
	}
	return &Response{Text: fmt.Sprintf("text-%d", len(wavData)), Confidence: 0.9}, nil
}

func (s *fakeService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// collectSink gathers results in delivery order.
type collectSink struct {
	mu      sync.Mutex
	results []Result
}

func (c *collectSink) sink(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

func (c *collectSink) snapshot() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTask(sessionID uint64, samples int) *Task {
	return &Task{
		SessionID:  sessionID,
		Samples:    make(audio.Frame, samples),
		SampleRate: 16000,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met within timeout")
}

func TestWorkerCompletesInOrder(t *testing.T) {
	collector := &collectSink{}
	worker := NewWorker(WorkerConfig{}, &fakeService{}, collector.sink, testLogger(), nil)
	worker.Start()
	defer worker.Stop(time.Second)

	for i := 1; i <= 5; i++ {
		if !worker.Submit(testTask(uint64(i), 160)) {
			t.Fatalf("Submit %d failed", i)
		}
	}

	waitFor(t, 3*time.Second, func() bool {
		return len(collector.snapshot()) == 5
	})

	results := collector.snapshot()
	for i, result := range results {
		expected := uint64(i + 1)
		if result.SessionID != expected {
			t.Errorf("Result %d: expected session %d, got %d", i, expected, result.SessionID)
		}
		if result.Error != "" {
			t.Errorf("Result %d: unexpected error %q", i, result.Error)
		}
	}
}

func TestWorkerSubmitFullQueue(t *testing.T) {
	// Not started: nothing consumes, so the queue fills to capacity
	worker := NewWorker(WorkerConfig{}, &fakeService{}, nil, testLogger(), nil)

	for i := 0; i < QueueCapacity; i++ {
		if !worker.Submit(testTask(uint64(i), 160)) {
			t.Fatalf("Submit %d failed before capacity", i)
		}
	}

	if worker.Submit(testTask(99, 160)) {
		t.Error("Expected submit to full queue to fail")
	}

	stats := worker.GetStats()
	if stats.Submitted != QueueCapacity {
		t.Errorf("Expected %d submitted, got %d", QueueCapacity, stats.Submitted)
	}
	if stats.Pending != QueueCapacity {
		t.Errorf("Expected %d pending, got %d", QueueCapacity, stats.Pending)
	}
}

func TestWorkerInferenceFailure(t *testing.T) {
	collector := &collectSink{}
	worker := NewWorker(WorkerConfig{}, &fakeService{fail: true}, collector.sink, testLogger(), nil)
	worker.Start()
	defer worker.Stop(time.Second)

	worker.Submit(testTask(1, 160))

	waitFor(t, 2*time.Second, func() bool {
		return len(collector.snapshot()) == 1
	})

	result := collector.snapshot()[0]
	if result.Error == "" {
		t.Error("Expected error result from failed inference")
	}
	if result.SessionID != 1 {
		t.Errorf("Expected session 1, got %d", result.SessionID)
	}
}

func TestWorkerEncodeFailure(t *testing.T) {
	service := &fakeService{}
	collector := &collectSink{}
	worker := NewWorker(WorkerConfig{}, service, collector.sink, testLogger(), nil)
	worker.Start()
	defer worker.Stop(time.Second)

	// Zero samples cannot be encoded; the sink still receives a result
	worker.Submit(testTask(1, 0))

	waitFor(t, 2*time.Second, func() bool {
		return len(collector.snapshot()) == 1
	})

	if collector.snapshot()[0].Error == "" {
		t.Error("Expected error result for unencodable audio")
	}

	if service.callCount() != 0 {
		t.Errorf("Expected no inference calls, got %d", service.callCount())
	}
}

func TestWorkerSinkPanicContained(t *testing.T) {
	worker := NewWorker(WorkerConfig{}, &fakeService{}, func(Result) {
		panic("sink exploded")
	}, testLogger(), nil)
	worker.Start()
	defer worker.Stop(time.Second)

	worker.Submit(testTask(1, 160))
	worker.Submit(testTask(2, 160))

	// Both tasks complete despite the panicking sink
	waitFor(t, 3*time.Second, func() bool {
		return worker.GetStats().Completed == 2
	})
}

func TestWorkerGracefulDrain(t *testing.T) {
	collector := &collectSink{}
	worker := NewWorker(WorkerConfig{}, &fakeService{delay: 50 * time.Millisecond}, collector.sink, testLogger(), nil)
	worker.Start()

	const tasks = 5
	for i := 1; i <= tasks; i++ {
		if !worker.Submit(testTask(uint64(i), 160)) {
			t.Fatalf("Submit %d failed", i)
		}
	}

	worker.Stop(3 * time.Second)

	stats := worker.GetStats()
	if stats.Completed != tasks {
		t.Errorf("Expected %d completed after drain, got %d", tasks, stats.Completed)
	}
	if len(collector.snapshot()) != tasks {
		t.Errorf("Expected %d results, got %d", tasks, len(collector.snapshot()))
	}
}

func TestWorkerDrainTimeout(t *testing.T) {
	worker := NewWorker(WorkerConfig{}, &fakeService{delay: 2 * time.Second}, nil, testLogger(), nil)
	worker.Start()

	// First task occupies the worker; the rest stay queued past the drain window
	for i := 1; i <= 3; i++ {
		worker.Submit(testTask(uint64(i), 160))
	}

	start := time.Now()
	worker.Stop(500 * time.Millisecond)
	elapsed := time.Since(start)

	// Drain window plus the bounded join, not the full backlog
	if elapsed > 5*time.Second {
		t.Errorf("Stop took too long: %v", elapsed)
	}

	stats := worker.GetStats()
	if stats.Completed >= stats.Submitted {
		t.Errorf("Expected abandoned tasks, got %d completed of %d submitted",
			stats.Completed, stats.Submitted)
	}
}

func TestWorkerStopIdempotent(t *testing.T) {
	worker := NewWorker(WorkerConfig{}, &fakeService{}, nil, testLogger(), nil)
	worker.Start()

	worker.Stop(time.Second)
	worker.Stop(time.Second) // no-op
}

func TestWorkerStartIdempotent(t *testing.T) {
	collector := &collectSink{}
	worker := NewWorker(WorkerConfig{}, &fakeService{}, collector.sink, testLogger(), nil)
	worker.Start()
	worker.Start() // no-op, must not spawn a second consumer
	defer worker.Stop(time.Second)

	worker.Submit(testTask(1, 160))

	waitFor(t, 2*time.Second, func() bool {
		return len(collector.snapshot()) == 1
	})

	// Give a hypothetical second consumer time to double-deliver
	time.Sleep(100 * time.Millisecond)
	if len(collector.snapshot()) != 1 {
		t.Errorf("Expected exactly 1 result, got %d", len(collector.snapshot()))
	}
}

func TestWorkerSnapshotWritten(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/recent.wav"

	collector := &collectSink{}
	worker := NewWorker(WorkerConfig{SnapshotPath: path}, &fakeService{}, collector.sink, testLogger(), nil)
	worker.Start()
	defer worker.Stop(time.Second)

	worker.Submit(testTask(1, 1600))

	waitFor(t, 2*time.Second, func() bool {
		return len(collector.snapshot()) == 1
	})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected snapshot at %s: %v", path, err)
	}

	expectedSize := int64(44 + 1600*2)
	if info.Size() != expectedSize {
		t.Errorf("Expected snapshot size %d, got %d", expectedSize, info.Size())
	}
}
