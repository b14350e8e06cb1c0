package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/dashboard"
	"trading-analytics-go/internal/database"
	"trading-analytics-go/internal/export"
	"trading-analytics-go/internal/logger"
	"trading-analytics-go/internal/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	shutdownTracing, err := tracing.Init(cfg.Tracing.Enabled)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Connect to the export job ledger
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	api := backend.NewClient(&cfg.Backend, log)
	exports := export.NewOrchestrator(api, database.NewJobStore(db), cfg.Exports, cfg.Dashboard.Location(), log)
	dash := dashboard.New(api, exports, cfg.Dashboard, log)

	mux := http.NewServeMux()
	NewAPIHandler(log, dash).Routes(mux)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Starting web server", zap.String("address", addr), zap.String("backend", cfg.Backend.APIBase))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Web server shutdown failed", zap.Error(err))
	}
	// Let background exports record their outcome.
	exports.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Tracing shutdown failed", zap.Error(err))
	}
}
