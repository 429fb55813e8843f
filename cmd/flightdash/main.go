package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightdash/internal/amqp"
	"flightdash/internal/cache"
	"flightdash/internal/config"
	"flightdash/internal/dataset"
	apphttp "flightdash/internal/http"
	"flightdash/internal/log"
	"flightdash/internal/source"
	gsheet "flightdash/internal/source/google"
	"flightdash/internal/source/httpfile"
	mem "flightdash/internal/source/memory"
	"flightdash/internal/storage"
)

func main() {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

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
		logger.Info("Initialized Google Sheets source", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	case "http":
		src = httpfile.New()
		logger.Info("Initialized HTTP file source", "url", cfg.SourceURL)
	default:
		src = mem.NewWithSample(cfg.SourceLocator)
		logger.Info("Initialized memory source", "locator", cfg.SourceLocator)
	}

	// Snapshot store is optional; an empty path disables it.
	var snapshots dataset.SnapshotStore
	if cfg.SQLiteDBPath != "" {
		repo, err := storage.NewSnapshotRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize snapshot store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		snapshots = repo
	}

	loader := dataset.NewLoader(src, snapshots, logger)

	// Refresh fan-out to workers is optional too.
	var publisher apphttp.RefreshPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP refresh publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, loader, cfg.Locator(), publisher, cfg.ReportCacheTTL, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	cacheManager := cache.NewManager()
	cacheManager.Register(srv.ReportCache())
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting flightdash server",
		"port", cfg.Port, "backend", cfg.SourceBackend, "locator", cfg.Locator())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
