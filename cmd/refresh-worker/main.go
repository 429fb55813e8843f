package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flightdash/internal/amqp"
	"flightdash/internal/config"
	"flightdash/internal/dataset"
	"flightdash/internal/log"
	"flightdash/internal/source"
	gsheet "flightdash/internal/source/google"
	"flightdash/internal/source/httpfile"
	mem "flightdash/internal/source/memory"
	"flightdash/internal/storage"
	"flightdash/internal/worker"
)

func main() {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting refresh-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var src source.Source
	switch cfg.SourceBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets source", "error", err)
			os.Exit(1)
		}
		src = cli
	case "http":
		src = httpfile.New()
	default:
		src = mem.NewWithSample(cfg.SourceLocator)
	}

	// The worker always persists snapshots; keeping them warm is its job.
	repo, err := storage.NewSnapshotRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize snapshot store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	loader := dataset.NewLoader(src, repo, logger)
	refreshWorker := worker.NewRefreshWorker(loader, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	// Consume refresh requests when AMQP is configured; otherwise the worker
	// runs purely on its periodic schedule.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			err := amqpClient.ConsumeRefresh(ctx, func(msg *amqp.RefreshMessage) error {
				return refreshWorker.HandleRefreshMessage(ctx, msg)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
				cancel()
			}
		}()
		logger.Info("Consuming refresh messages", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - running on the periodic schedule only")
	}

	if err := refreshWorker.RunPeriodic(ctx, cfg.Locator(), cfg.RefreshInterval); err != nil && err != context.Canceled {
		logger.Error("Periodic refresh stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
