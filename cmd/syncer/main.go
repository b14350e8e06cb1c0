package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trading-analytics-go/internal/autosync"
	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/database"
	"trading-analytics-go/internal/export"
	"trading-analytics-go/internal/logger"
	"trading-analytics-go/internal/tracing"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	shutdownTracing, err := tracing.Init(cfg.Tracing.Enabled)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Initialize the export job ledger
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	account := firstNonEmpty(cfg.Sync.Account, cfg.Dashboard.Account, cfg.Dashboard.FallbackAccount)
	if account == "" {
		log.Fatal("No account configured for auto-sync")
	}

	api := backend.NewClient(&cfg.Backend, log)
	loc := cfg.Dashboard.Location()
	exports := export.NewOrchestrator(api, database.NewJobStore(db), cfg.Exports, loc, log)

	scheduler, err := autosync.NewScheduler(exports, cfg.Sync, account, loc, log)
	if err != nil {
		log.Fatal("Invalid sync schedule", zap.Error(err))
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	server := autosync.NewAPIServer(scheduler, cfg.Sync.ApiPort, log)
	server.Start()

	scheduler.Run(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Tracing shutdown failed", zap.Error(err))
	}
	log.Info("Syncer has been shut down.")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
