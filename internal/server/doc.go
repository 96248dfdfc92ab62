// Package server provides the HTTP monitoring and control API: health,
// statistics, sanitized configuration, Prometheus metrics, and the
// record start/stop endpoints driving the session controller.
package server
