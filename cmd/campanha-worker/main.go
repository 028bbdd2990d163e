package main

import (
	"context"
	"errors"
	"os"
	"time"

	"campanha/internal/amqp"
	"campanha/internal/cli"
	"campanha/internal/services"
	"campanha/internal/worker"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	logger.Info("Starting campanha-worker", "version", version)

	if !cfg.AMQPEnabled() {
		logger.Error("The export worker needs AMQP_URL")
		os.Exit(1)
	}

	camp := cli.LoadCampaign(logger, cfg.CampaignConfigPath)
	metrics, shutdownTelemetry := cli.InitTelemetry(logger, cfg, "campanha-worker", version)
	store := cli.InitBackend(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	svc := services.NewCampaignService(services.Options{
		Store:    store.Store,
		Campaign: camp,
		Metrics:  metrics,
		Logger:   logger,
	})
	exportWorker := worker.NewExportWorker(svc, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", "error", err)
			}
		}
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("Telemetry shutdown error", "error", err)
		}
	})

	// Exports published while the worker was down.
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeSnapshotPublished(ctx, exportWorker.HandleSnapshotPublished)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
