package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/dictation-service/internal/config"
	"github.com/skypro1111/dictation-service/internal/metrics"
	"github.com/skypro1111/dictation-service/internal/session"
	"github.com/skypro1111/dictation-service/internal/transcribe"
)

// HTTPServer provides HTTP API endpoints for monitoring and dictation control
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller *session.Controller
	client     *transcribe.Client
	metrics    *metrics.Metrics

	startTime time.Time
}

// HTTPServerConfig contains HTTP server configuration
type HTTPServerConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg HTTPServerConfig, logger *slog.Logger,
	appConfig *config.Config, controller *session.Controller, client *transcribe.Client, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		client:     client,
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Dictation control endpoints
	mux.HandleFunc("/record/start", h.withMetrics("/record/start", h.handleRecordStart))
	mux.HandleFunc("/record/stop", h.withMetrics("/record/stop", h.handleRecordStop))
	mux.HandleFunc("/record/status", h.withMetrics("/record/status", h.handleRecordStatus))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoints
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/stats/transcription", h.withMetrics("/stats/transcription", h.handleTranscriptionStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	status := h.controller.GetStatus()
	clientStats := h.client.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "dictation-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"session_controller": map[string]interface{}{
				"status":    "running",
				"recording": status.Recording,
			},
			"transcription_worker": map[string]interface{}{
				"status":    "running",
				"pending":   status.Pending,
				"submitted": status.Submitted,
				"completed": status.Completed,
			},
			"inference": map[string]interface{}{
				"status":         "running",
				"total_requests": clientStats.TotalRequests,
				"success_rate":   clientStats.SuccessRate,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleRecordStart implements the POST /record/start endpoint
func (h *HTTPServer) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.controller.Start(); err != nil {
		h.logger.Error("Failed to start recording", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.controller.GetStatus())
}

// handleRecordStop implements the POST /record/stop endpoint
func (h *HTTPServer) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.controller.Stop(false)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.controller.GetStatus())
}

// handleRecordStatus implements the GET /record/status endpoint
func (h *HTTPServer) handleRecordStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.controller.GetStatus())
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes, _ := h.config.Audio.EffectiveMaxSessionBytes()

	// Return sanitized configuration
	sanitizedConfig := map[string]interface{}{
		"audio": map[string]interface{}{
			"sample_rate":       h.config.Audio.SampleRate,
			"block_ms":          h.config.Audio.BlockMs,
			"device":            h.config.Audio.Device,
			"capture_command":   h.config.Audio.CaptureCommand,
			"max_session_bytes": maxBytes,
		},
		"asr": map[string]interface{}{
			"use_vad":            h.config.ASR.UseVAD,
			"use_punc":           h.config.ASR.UsePunc,
			"hotword":            h.config.ASR.Hotword,
			"batch_size_seconds": h.config.ASR.BatchSizeSeconds,
			"language":           h.config.ASR.Language,
		},
		"inference": map[string]interface{}{
			"endpoint": h.config.Inference.Endpoint,
			"timeout":  h.config.Inference.Timeout,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.controller.GetStatus()
	clientStats := h.client.GetStats()
	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"session": map[string]interface{}{
			"recording":      status.Recording,
			"session_id":     status.SessionID,
			"session_bytes":  status.SessionBytes,
			"session_frames": status.SessionFrames,
		},
		"pipeline": map[string]interface{}{
			"transcribing": status.Transcribing,
			"pending":      status.Pending,
			"submitted":    status.Submitted,
			"completed":    status.Completed,
		},
		"inference": clientStats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleTranscriptionStats implements the /stats/transcription endpoint
func (h *HTTPServer) handleTranscriptionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.client.GetStats())
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Dictation Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                    "API documentation",
			"GET /health":              "Service health check",
			"POST /record/start":       "Start a recording session",
			"POST /record/stop":        "Stop the recording session and queue transcription",
			"GET /record/status":       "Current session and pipeline status",
			"GET /config":              "Get service configuration",
			"GET /stats":               "Get service statistics",
			"GET /stats/transcription": "Get inference client statistics",
			"GET /metrics":             "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
