package audio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	samples := make(Frame, 16000) // 1 second at 16kHz
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	wavData, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := 44 + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected %d bytes, got %d", expectedSize, len(wavData))
	}

	if string(wavData[0:4]) != "RIFF" {
		t.Error("Missing RIFF magic")
	}

	if string(wavData[8:12]) != "WAVE" {
		t.Error("Missing WAVE magic")
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	_, err := EncodeWAV(Frame{}, 16000)
	if err == nil {
		t.Error("Expected error for empty samples")
	}
}

func TestEncodeWAVInvalidSampleRate(t *testing.T) {
	_, err := EncodeWAV(make(Frame, 100), 0)
	if err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestWAVRoundtrip(t *testing.T) {
	original := Frame{-32768, -100, 0, 100, 32767, 42}

	wavData, err := EncodeWAV(original, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, sampleRate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if sampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", sampleRate)
	}

	if len(decoded) != len(original) {
		t.Fatalf("Expected %d samples, got %d", len(original), len(decoded))
	}

	for i, sample := range original {
		if decoded[i] != sample {
			t.Errorf("Sample %d: expected %d, got %d", i, sample, decoded[i])
		}
	}
}

func TestWAVDuration(t *testing.T) {
	samples := make(Frame, 8000) // 0.5 seconds at 16kHz
	wavData, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := WAVDuration(wavData)
	if err != nil {
		t.Fatalf("WAVDuration failed: %v", err)
	}

	if duration < 0.49 || duration > 0.51 {
		t.Errorf("Expected duration ~0.5s, got %f", duration)
	}
}

func TestWriteWAVSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifacts", "recent.wav")

	samples := make(Frame, 1600)
	wavData, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if err := WriteWAVSnapshot(path, wavData); err != nil {
		t.Fatalf("WriteWAVSnapshot failed: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}

	if len(written) != len(wavData) {
		t.Errorf("Expected %d bytes, got %d", len(wavData), len(written))
	}

	// Overwriting an existing snapshot must succeed
	if err := WriteWAVSnapshot(path, wavData); err != nil {
		t.Errorf("Snapshot overwrite failed: %v", err)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Failed to read snapshot dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 file in snapshot dir, got %d", len(entries))
	}
}
