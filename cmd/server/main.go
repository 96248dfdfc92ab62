package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/skypro1111/dictation-service/internal/audio"
	"github.com/skypro1111/dictation-service/internal/config"
	"github.com/skypro1111/dictation-service/internal/metrics"
	"github.com/skypro1111/dictation-service/internal/server"
	"github.com/skypro1111/dictation-service/internal/session"
	"github.com/skypro1111/dictation-service/internal/transcribe"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "dictation-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	maxSessionBytes, usedFallback := cfg.Audio.EffectiveMaxSessionBytes()
	if usedFallback {
		logger.Warn("max_session_bytes missing or invalid, using default",
			slog.Int64("default", maxSessionBytes),
		)
	}

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("block_ms", cfg.Audio.BlockMs),
		slog.String("device", cfg.Audio.Device),
		slog.Int64("max_session_bytes", maxSessionBytes),
		slog.String("inference_endpoint", cfg.Inference.Endpoint),
		slog.String("language", cfg.ASR.Language),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Create the inference client and fail fast if the engine is not ready
	client, err := transcribe.NewClient(transcribe.ClientConfig{
		Endpoint: cfg.Inference.Endpoint,
		Timeout:  cfg.Inference.GetTimeoutDuration(),
	})
	if err != nil {
		logger.Error("Failed to create inference client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = client.Initialize(initCtx)
	initCancel()
	if err != nil {
		logger.Error("Inference service initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Inference service ready", slog.String("endpoint", cfg.Inference.Endpoint))

	// Create transcription worker
	snapshotPath := ""
	if cfg.Logging.Dir != "" {
		snapshotPath = filepath.Join(cfg.Logging.Dir, "recent.wav")
	}

	worker := transcribe.NewWorker(transcribe.WorkerConfig{
		Options: transcribe.Options{
			UseVAD:           cfg.ASR.UseVAD,
			UsePunc:          cfg.ASR.UsePunc,
			Hotword:          cfg.ASR.Hotword,
			BatchSizeSeconds: cfg.ASR.BatchSizeSeconds,
			Language:         cfg.ASR.Language,
		},
		SnapshotPath: snapshotPath,
	}, client, resultSink(logger), logger, appMetrics)
	worker.Start()

	// Create the capture source and session controller
	var source audio.Source
	if cfg.Audio.CaptureCommand == "synthetic" {
		// Tone generator for development without a microphone
		source = audio.NewSyntheticSource(cfg.Audio.SampleRate, cfg.Audio.BlockSamples(), 440.0)
		logger.Warn("Using synthetic audio source")
	} else {
		source = audio.NewCommandSource(
			cfg.Audio.CaptureCommand,
			cfg.Audio.Device,
			cfg.Audio.SampleRate,
			cfg.Audio.BlockSamples(),
			logger,
		)
	}

	controller := session.NewController(session.Config{
		SampleRate:      cfg.Audio.SampleRate,
		MaxSessionBytes: cfg.Audio.MaxSessionBytes,
	}, source, worker, logger, appMetrics)
	logger.Info("Session controller initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpConfig := server.HTTPServerConfig{
			Port:    cfg.HTTP.Port,
			Address: cfg.HTTP.Address,
			Enabled: cfg.HTTP.Enabled,
		}
		httpServer = server.NewHTTPServer(httpConfig, logger, cfg, controller, client, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new control requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
		shutdownCancel()
	}

	// Stop any active recording and drain the transcription queue
	controller.Close(transcribe.DefaultDrainTimeout)

	// Log final statistics
	status := controller.GetStatus()
	clientStats := client.GetStats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("tasks_submitted", status.Submitted),
		slog.Uint64("tasks_completed", status.Completed),
		slog.Uint64("inference_requests", clientStats.TotalRequests),
		slog.Float64("inference_success_rate", clientStats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// resultSink prints completed transcriptions; the surrounding desktop
// integration replaces this with text injection into the focused window.
func resultSink(logger *slog.Logger) transcribe.ResultSink {
	return func(result transcribe.Result) {
		if result.Error != "" {
			logger.Error("Transcription result error",
				slog.Uint64("session_id", result.SessionID),
				slog.String("error", result.Error),
			)
			return
		}

		logger.Info("Transcription result",
			slog.Uint64("session_id", result.SessionID),
			slog.String("text", result.Text),
			slog.Float64("audio_duration", result.Duration),
			slog.Duration("latency", result.InferenceLatency),
			slog.Float64("confidence", result.Confidence),
		)
		fmt.Println(result.Text)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
