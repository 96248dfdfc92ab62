package audio

import (
	"sync"
	"testing"
)

func TestNewAccumulator(t *testing.T) {
	acc := NewAccumulator()

	if acc == nil {
		t.Fatal("NewAccumulator returned nil")
	}

	if acc.CurrentBytes() != 0 {
		t.Errorf("Expected initial byte count 0, got %d", acc.CurrentBytes())
	}

	if acc.FrameCount() != 0 {
		t.Errorf("Expected initial frame count 0, got %d", acc.FrameCount())
	}
}

func TestAccumulatorByteCount(t *testing.T) {
	acc := NewAccumulator()

	// Each appended frame must advance the counter by exactly its byte length
	frames := []Frame{
		make(Frame, 160),
		make(Frame, 320),
		make(Frame, 80),
	}

	var expected int64
	for _, frame := range frames {
		acc.Append(frame)
		expected += frame.ByteLen()

		if acc.CurrentBytes() != expected {
			t.Errorf("Expected %d bytes after append, got %d", expected, acc.CurrentBytes())
		}
	}

	if acc.FrameCount() != uint64(len(frames)) {
		t.Errorf("Expected %d frames, got %d", len(frames), acc.FrameCount())
	}
}

func TestAccumulatorDrainPreservesOrder(t *testing.T) {
	acc := NewAccumulator()

	f1 := Frame{1, 2, 3}
	f2 := Frame{4, 5}
	f3 := Frame{6, 7, 8, 9}

	acc.Append(f1)
	acc.Append(f2)
	acc.Append(f3)

	combined := acc.DrainAndClear()

	expected := Frame{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if len(combined) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(combined))
	}

	for i, sample := range expected {
		if combined[i] != sample {
			t.Errorf("Sample %d: expected %d, got %d", i, sample, combined[i])
		}
	}
}

func TestAccumulatorDrainResets(t *testing.T) {
	acc := NewAccumulator()

	acc.Append(make(Frame, 100))
	acc.Append(make(Frame, 100))

	if acc.DrainAndClear() == nil {
		t.Fatal("Expected drained samples, got nil")
	}

	if acc.CurrentBytes() != 0 {
		t.Errorf("Expected 0 bytes after drain, got %d", acc.CurrentBytes())
	}

	if acc.FrameCount() != 0 {
		t.Errorf("Expected 0 frames after drain, got %d", acc.FrameCount())
	}

	// A second drain of the now-empty accumulator returns nil
	if acc.DrainAndClear() != nil {
		t.Error("Expected nil from draining empty accumulator")
	}
}

func TestAccumulatorDrainEmpty(t *testing.T) {
	acc := NewAccumulator()

	if acc.DrainAndClear() != nil {
		t.Error("Expected nil from empty accumulator")
	}

	if acc.CurrentBytes() != 0 {
		t.Errorf("Expected 0 bytes, got %d", acc.CurrentBytes())
	}
}

func TestAccumulatorClear(t *testing.T) {
	acc := NewAccumulator()

	acc.Append(make(Frame, 160))
	acc.Clear()

	if acc.CurrentBytes() != 0 {
		t.Errorf("Expected 0 bytes after clear, got %d", acc.CurrentBytes())
	}

	if acc.DrainAndClear() != nil {
		t.Error("Expected nil after clear")
	}
}

func TestAccumulatorConcurrentAppend(t *testing.T) {
	acc := NewAccumulator()

	const goroutines = 8
	const framesEach = 100
	const frameSamples = 80

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < framesEach; j++ {
				acc.Append(make(Frame, frameSamples))
			}
		}()
	}
	wg.Wait()

	expectedBytes := int64(goroutines * framesEach * frameSamples * 2)
	if acc.CurrentBytes() != expectedBytes {
		t.Errorf("Expected %d bytes, got %d", expectedBytes, acc.CurrentBytes())
	}

	combined := acc.DrainAndClear()
	if int64(len(combined))*2 != expectedBytes {
		t.Errorf("Expected %d samples, got %d", expectedBytes/2, len(combined))
	}
}
