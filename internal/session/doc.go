// Package session implements the recording session lifecycle: the
// Idle/Recording state machine, the capture loop that drains the frame queue
// into the session accumulator, the size-cap self-stop, and the non-blocking
// hand-off of completed sessions to the transcription worker.
package session
