package audio

import (
	"fmt"
	"time"
)

// Frame is one fixed-size block of mono PCM-16 samples captured from the device.
type Frame []int16

// ByteLen returns the size of the frame in bytes (2 bytes per sample).
func (f Frame) ByteLen() int64 {
	return int64(len(f)) * 2
}

// SamplesFromBytes converts a raw little-endian PCM-16 byte block into a Frame.
// The block length must be even; odd-length blocks cannot be whole samples.
func SamplesFromBytes(raw []byte) (Frame, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("raw PCM block length must be even (got %d bytes)", len(raw))
	}

	samples := make(Frame, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[i*2]) | int16(raw[i*2+1])<<8
	}

	return samples, nil
}

// BytesFromSamples converts a Frame back to little-endian PCM-16 bytes.
func BytesFromSamples(samples Frame) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		raw[i*2] = byte(s)
		raw[i*2+1] = byte(uint16(s) >> 8)
	}
	return raw
}

// FrameQueue is a bounded, thread-safe queue of captured frames. The capture
// source is the producer; the session's capture loop is the sole consumer.
type FrameQueue struct {
	ch chan Frame
}

// NewFrameQueue creates a frame queue holding up to capacity frames.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = 512
	}
	return &FrameQueue{ch: make(chan Frame, capacity)}
}

// Push offers a frame to the queue without blocking. When the queue is full
// the oldest data is not displaced; the new frame is dropped and Push reports
// false so the producer can count the overrun.
func (q *FrameQueue) Push(frame Frame) bool {
	select {
	case q.ch <- frame:
		return true
	default:
		return false
	}
}

// Pop removes the next frame, waiting up to timeout for one to arrive.
// It returns false on timeout.
func (q *FrameQueue) Pop(timeout time.Duration) (Frame, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-q.ch:
		return frame, true
	case <-timer.C:
		return nil, false
	}
}

// Flush discards all queued frames.
func (q *FrameQueue) Flush() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}

// Len returns the number of frames currently queued.
func (q *FrameQueue) Len() int {
	return len(q.ch)
}
