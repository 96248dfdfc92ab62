// Package config provides configuration loading and validation for the dictation service.
// It handles YAML-based configuration with struct validation covering audio capture,
// ASR passthrough options, the inference endpoint, and the monitoring HTTP API.
package config
