package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSessionBytes caps a single recording session at 20 MiB of PCM data
// when the configured limit is absent or invalid.
const DefaultMaxSessionBytes = 20 * 1024 * 1024

// Config represents the complete service configuration
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	ASR       ASRConfig       `yaml:"asr"`
	Inference InferenceConfig `yaml:"inference"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AudioConfig contains audio capture parameters
type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate"`       // Hz
	BlockMs         int    `yaml:"block_ms"`          // frame duration in milliseconds
	Device          string `yaml:"device"`            // capture device name, empty for default
	CaptureCommand  string `yaml:"capture_command"`   // external PCM recorder, e.g. "arecord"
	MaxSessionBytes int64  `yaml:"max_session_bytes"` // per-session cap, <=0 falls back to 20 MiB
}

// ASRConfig contains options passed verbatim to the inference service
type ASRConfig struct {
	UseVAD           bool    `yaml:"use_vad"`
	UsePunc          bool    `yaml:"use_punc"`
	Hotword          string  `yaml:"hotword"`
	BatchSizeSeconds float64 `yaml:"batch_size_seconds"`
	Language         string  `yaml:"language"`
}

// InferenceConfig contains inference service endpoint configuration
type InferenceConfig struct {
	Endpoint string `yaml:"endpoint"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// HTTPConfig contains monitoring/control API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	Dir    string `yaml:"dir"` // directory for session artifacts (recent.wav)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.ASR.Validate(); err != nil {
		return fmt.Errorf("asr config: %w", err)
	}

	if err := c.Inference.Validate(); err != nil {
		return fmt.Errorf("inference config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.BlockMs < 10 || a.BlockMs > 1000 {
		return fmt.Errorf("block_ms must be between 10 and 1000 milliseconds, got %d", a.BlockMs)
	}

	// max_session_bytes is deliberately not rejected here: non-positive values
	// fall back to DefaultMaxSessionBytes with a warning at startup.

	return nil
}

// Validate validates ASR passthrough options
func (a *ASRConfig) Validate() error {
	if a.BatchSizeSeconds < 0 {
		return fmt.Errorf("batch_size_seconds cannot be negative, got %f", a.BatchSizeSeconds)
	}

	return nil
}

// Validate validates inference service configuration
func (i *InferenceConfig) Validate() error {
	if i.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if i.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", i.Timeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// EffectiveMaxSessionBytes returns the configured session cap, or the 20 MiB
// default when the configured value is non-positive. The second return value
// reports whether the fallback was applied.
func (a *AudioConfig) EffectiveMaxSessionBytes() (int64, bool) {
	if a.MaxSessionBytes <= 0 {
		return DefaultMaxSessionBytes, true
	}
	return a.MaxSessionBytes, false
}

// GetBlockDuration returns the frame duration as a time.Duration
func (a *AudioConfig) GetBlockDuration() time.Duration {
	return time.Duration(a.BlockMs) * time.Millisecond
}

// BlockSamples returns the number of samples in one capture frame
func (a *AudioConfig) BlockSamples() int {
	return a.SampleRate * a.BlockMs / 1000
}

// GetTimeoutDuration returns the inference timeout as a time.Duration
func (i *InferenceConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}
