package audio

import (
	"testing"
	"time"
)

func TestSamplesFromBytes(t *testing.T) {
	// 4 bytes = 2 little-endian samples
	raw := []byte{0x01, 0x00, 0xFF, 0x7F}

	samples, err := SamplesFromBytes(raw)
	if err != nil {
		t.Fatalf("SamplesFromBytes failed: %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}

	if samples[0] != 1 {
		t.Errorf("Expected sample 1, got %d", samples[0])
	}

	if samples[1] != 32767 {
		t.Errorf("Expected sample 32767, got %d", samples[1])
	}
}

func TestSamplesFromBytesOddLength(t *testing.T) {
	_, err := SamplesFromBytes([]byte{0x01, 0x00, 0xFF})
	if err == nil {
		t.Error("Expected error for odd byte length")
	}
}

func TestSamplesRoundtrip(t *testing.T) {
	original := Frame{-32768, -1, 0, 1, 32767}

	raw := BytesFromSamples(original)
	if len(raw) != len(original)*2 {
		t.Fatalf("Expected %d bytes, got %d", len(original)*2, len(raw))
	}

	decoded, err := SamplesFromBytes(raw)
	if err != nil {
		t.Fatalf("SamplesFromBytes failed: %v", err)
	}

	for i, sample := range original {
		if decoded[i] != sample {
			t.Errorf("Sample %d: expected %d, got %d", i, sample, decoded[i])
		}
	}
}

func TestFrameByteLen(t *testing.T) {
	frame := make(Frame, 160)
	if frame.ByteLen() != 320 {
		t.Errorf("Expected 320 bytes, got %d", frame.ByteLen())
	}
}

func TestFrameQueuePushPop(t *testing.T) {
	queue := NewFrameQueue(4)

	frame := Frame{1, 2, 3}
	if !queue.Push(frame) {
		t.Fatal("Push to empty queue failed")
	}

	if queue.Len() != 1 {
		t.Errorf("Expected queue length 1, got %d", queue.Len())
	}

	popped, ok := queue.Pop(100 * time.Millisecond)
	if !ok {
		t.Fatal("Pop from non-empty queue failed")
	}

	if len(popped) != 3 || popped[0] != 1 {
		t.Errorf("Popped frame does not match pushed frame: %v", popped)
	}
}

func TestFrameQueuePopTimeout(t *testing.T) {
	queue := NewFrameQueue(4)

	start := time.Now()
	_, ok := queue.Pop(50 * time.Millisecond)
	elapsed := time.Since(start)

	if ok {
		t.Error("Expected Pop on empty queue to time out")
	}

	if elapsed < 40*time.Millisecond {
		t.Errorf("Pop returned too early: %v", elapsed)
	}
}

func TestFrameQueueFull(t *testing.T) {
	queue := NewFrameQueue(2)

	if !queue.Push(Frame{1}) {
		t.Fatal("First push failed")
	}
	if !queue.Push(Frame{2}) {
		t.Fatal("Second push failed")
	}

	// Queue is full; push must not block
	if queue.Push(Frame{3}) {
		t.Error("Expected push to full queue to fail")
	}
}

func TestFrameQueueFlush(t *testing.T) {
	queue := NewFrameQueue(4)

	queue.Push(Frame{1})
	queue.Push(Frame{2})
	queue.Flush()

	if queue.Len() != 0 {
		t.Errorf("Expected empty queue after flush, got length %d", queue.Len())
	}
}
