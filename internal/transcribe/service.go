package transcribe

import (
	"context"
	"time"
)

// Options are the recognized ASR parameters, passed through to the inference
// service verbatim.
type Options struct {
	UseVAD           bool    `json:"use_vad"`
	UsePunc          bool    `json:"use_punc"`
	Hotword          string  `json:"hotword"`
	BatchSizeSeconds float64 `json:"batch_size_seconds"`
	Language         string  `json:"language"`
}

// Response is the raw outcome of one inference call.
type Response struct {
	Text       string  `json:"text"`       // final text, punctuation restored
	RawText    string  `json:"raw_text"`   // pre-restoration text
	Duration   float64 `json:"duration"`   // audio duration in seconds
	Confidence float64 `json:"confidence"` // recognition confidence, 0..1
}

// Service is the opaque inference engine boundary. Initialize must succeed
// before the first Transcribe call; the service fails fast otherwise.
// Transcribe is blocking and potentially slow; the worker calls it with one
// task in flight at a time.
type Service interface {
	Initialize(ctx context.Context) error
	Transcribe(ctx context.Context, wavData []byte, opts Options) (*Response, error)
}

// Result is delivered to the result sink exactly once per submitted task, in
// task order. A failed inference produces a Result with Error set and empty
// text rather than no Result at all.
type Result struct {
	SessionID        uint64        `json:"session_id"`
	Text             string        `json:"text"`
	RawText          string        `json:"raw_text"`
	Duration         float64       `json:"duration"` // seconds of audio
	InferenceLatency time.Duration `json:"inference_latency"`
	Confidence       float64       `json:"confidence"`
	Error            string        `json:"error,omitempty"`
}

// ResultSink receives completed transcription results on the worker goroutine.
// It must not block for long: the single-worker design stalls behind it.
type ResultSink func(Result)
