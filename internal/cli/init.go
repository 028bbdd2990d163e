// Package cli provides common initialization shared by cmd/campanha,
// cmd/campanha-worker and cmd/campanha-cli.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"campanha/internal/backend"
	"campanha/internal/campaign"
	"campanha/internal/config"
	clog "campanha/internal/log"
	"campanha/internal/telemetry"
)

// SetupLogger builds the application logger from cfg and installs it as
// the slog default. A nil cfg gives the default text logger at info level.
func SetupLogger(cfg *config.Config) *clog.Logger {
	lc := clog.DefaultConfig()
	if cfg != nil {
		if level, err := clog.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
		lc.Format = cfg.LogFormat
	}
	logger := clog.New(lc)
	clog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// LoadCampaign reads the campaign settings or exits the process.
func LoadCampaign(logger *clog.Logger, path string) *campaign.Campaign {
	c, err := campaign.Load(path)
	if err != nil {
		logger.Error("Failed to load campaign settings", "error", err, "path", path)
		os.Exit(1)
	}
	logger.Info("Campaign settings loaded",
		"name", c.Name,
		"timezone", c.Location.String(),
		"stores", len(c.Catalog().Stores()))
	return c
}

// InitBackend creates the configured blob store or exits the process.
func InitBackend(ctx context.Context, logger *clog.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(clog.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", bc.Type)
		os.Exit(1)
	}
	return res
}

// InitTelemetry installs the meter provider and builds the pipeline
// instruments. Failures degrade to no telemetry.
func InitTelemetry(logger *clog.Logger, cfg *config.Config, service, version string) (*telemetry.Metrics, telemetry.ShutdownFunc) {
	noop := func(context.Context) error { return nil }
	shutdown, err := telemetry.Init(service, version, telemetry.Config{
		Exporter: cfg.TelemetryExporter,
		Interval: cfg.TelemetryInterval,
	})
	if err != nil {
		logger.Warn("Telemetry disabled", "error", err)
		return nil, noop
	}
	m, err := telemetry.NewMetrics(nil)
	if err != nil {
		logger.Warn("Failed to create telemetry instruments", "error", err)
		return nil, shutdown
	}
	return m, shutdown
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *clog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
