package autosync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// APIServer provides an HTTP interface for the scheduler.
type APIServer struct {
	server    *http.Server
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(scheduler *Scheduler, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		scheduler: scheduler,
		logger:    logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the status routes.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		UUID      string   `json:"uuid"`
		Name      string   `json:"name"`
		Account   string   `json:"account"`
		StartTime string   `json:"start_time"`
		Uptime    string   `json:"uptime"`
		Schedules []Status `json:"schedules"`
	}{
		UUID:      s.scheduler.UUID,
		Name:      s.scheduler.Name,
		Account:   s.scheduler.account,
		StartTime: s.scheduler.StartTime.Format(time.RFC3339),
		Uptime:    time.Since(s.scheduler.StartTime).String(),
		Schedules: s.scheduler.Status(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
