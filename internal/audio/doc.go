// Package audio handles PCM frame capture, buffering, and format conversion.
// It implements the bounded frame queue fed by a capture source, the per-session
// byte-counted accumulator, and WAV encoding for the inference hand-off.
package audio
