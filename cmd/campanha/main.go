package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"campanha/internal/amqp"
	"campanha/internal/cache"
	"campanha/internal/cli"
	apphttp "campanha/internal/http"
	clog "campanha/internal/log"
	"campanha/internal/middleware/ratelimit"
	"campanha/internal/services"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	camp := cli.LoadCampaign(logger, cfg.CampaignConfigPath)
	metrics, shutdownTelemetry := cli.InitTelemetry(logger, cfg, "campanha", version)
	store := cli.InitBackend(context.Background(), logger, cfg)

	// Events are optional: without a broker, exports are rendered on demand.
	var (
		amqpClient *amqp.Client
		publisher  services.EventPublisher
	)
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	reportCache := cache.NewLRUCache[any](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(clog.ComponentCache).Logger)
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(time.Minute)

	svc := services.NewCampaignService(services.Options{
		Store:     store.Store,
		Campaign:  camp,
		Publisher: publisher,
		Metrics:   metrics,
		Cache:     reportCache,
		Logger:    logger,
	})

	ready := map[string]apphttp.ReadyCheck{}
	if store.Ready != nil {
		ready["blob_store"] = apphttp.ReadyCheck(store.Ready)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Ready:          ready,
		RateLimit:      ratelimit.DefaultConfig(),
		Cache:          reportCache,
		Logger:         logger,
	})
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		cacheManager.Stop()
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", "error", err)
			}
		}
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("Telemetry shutdown error", "error", err)
		}
	})

	logger.Info("Starting campanha server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"campaign", camp.Name,
		"version", version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
