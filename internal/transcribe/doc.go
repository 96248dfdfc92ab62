// Package transcribe provides the asynchronous transcription pipeline: the
// bounded task queue consumed by a single worker goroutine, the inference
// service contract, and the HTTP client for a FunASR-style inference server.
package transcribe
