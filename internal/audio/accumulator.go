package audio

import (
	"sync"
	"time"
)

// Accumulator collects the frames of one recording session in arrival order
// and tracks the accumulated byte count. A single mutex guards both the frame
// list and the counter so the capture loop's size-cap check always observes a
// consistent pair.
type Accumulator struct {
	frames []Frame
	bytes  int64

	// Session-lifetime stats
	frameCount uint64
	lastAppend time.Time

	mu sync.Mutex
}

// AccumulatorStats represents accumulator state for monitoring
type AccumulatorStats struct {
	Frames     uint64    `json:"frames"`
	Bytes      int64     `json:"bytes"`
	LastAppend time.Time `json:"last_append"`
}

// NewAccumulator creates an empty session accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds a frame to the end of the session buffer and advances the byte
// counter by the frame's byte length.
func (a *Accumulator) Append(frame Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frames = append(a.frames, frame)
	a.bytes += frame.ByteLen()
	a.frameCount++
	a.lastAppend = time.Now()
}

// CurrentBytes returns the number of bytes accumulated so far. The capture
// loop evaluates the session size cap against this after every append.
func (a *Accumulator) CurrentBytes() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bytes
}

// DrainAndClear concatenates all buffered frames into one contiguous sample
// slice, returns it, and resets the accumulator. The accumulator is cleared
// even when there is nothing to return, so a failed session never leaks stale
// frames into the next one. It returns nil for an empty session.
func (a *Accumulator) DrainAndClear() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.frames) == 0 {
		a.reset()
		return nil
	}

	total := 0
	for _, frame := range a.frames {
		total += len(frame)
	}

	combined := make(Frame, 0, total)
	for _, frame := range a.frames {
		combined = append(combined, frame...)
	}

	a.reset()

	if len(combined) == 0 {
		return nil
	}
	return combined
}

// Clear empties the accumulator without returning the data. Called at session
// start so leftovers from an aborted session never leak forward.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

func (a *Accumulator) reset() {
	a.frames = nil
	a.bytes = 0
	a.frameCount = 0
}

// FrameCount returns the number of frames buffered for the current session.
func (a *Accumulator) FrameCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frameCount
}

// GetStats returns current accumulator statistics
func (a *Accumulator) GetStats() AccumulatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return AccumulatorStats{
		Frames:     a.frameCount,
		Bytes:      a.bytes,
		LastAppend: a.lastAppend,
	}
}
