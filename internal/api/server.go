// Package api provides the HTTP API for the location tracking service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geotrack.dev/geotrack/internal/tracking"
	"geotrack.dev/geotrack/pkg/metrics"
)

// Server represents the API HTTP server.
type Server struct {
	logger     *slog.Logger
	service    *tracking.Service
	metrics    *metrics.APIMetrics // Optional metrics
	httpServer *http.Server
	config     *ServerConfig
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger  *slog.Logger
	Service *tracking.Service

	// HTTP server configuration
	HTTPPort int

	// Metrics is the optional Prometheus metrics collector.
	Metrics *metrics.APIMetrics
}

// NewServer creates a new API Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Service == nil {
		return nil, errors.New("service cannot be nil")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	return &Server{
		logger:  cfg.Logger,
		service: cfg.Service,
		metrics: cfg.Metrics,
		config:  cfg,
	}, nil
}

// Handler returns the server's routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Run starts the API server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting API server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	mux := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("API server started successfully")

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down API server")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		s.logger.Info("HTTP server stopped")
	}

	s.logger.Info("API server shutdown completed successfully")
	return nil
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Authentication
	mux.HandleFunc("POST /auth", s.instrument("/auth", s.handleAuth))

	// Devices
	mux.HandleFunc("GET /devices", s.instrument("/devices", s.handleListDevices))
	mux.HandleFunc("POST /devices", s.instrument("/devices", s.handleDeviceAction))
	mux.HandleFunc("DELETE /devices", s.instrument("/devices", s.handleDeleteDevice))

	// Geofences
	mux.HandleFunc("GET /geofence", s.instrument("/geofence", s.handleListGeofences))
	mux.HandleFunc("POST /geofence", s.instrument("/geofence", s.handleAddGeofence))
	mux.HandleFunc("PUT /geofence", s.instrument("/geofence", s.handleUpdateGeofence))
	mux.HandleFunc("DELETE /geofence", s.instrument("/geofence", s.handleDeleteGeofence))

	// Positions
	mux.HandleFunc("GET /positions", s.instrument("/positions", s.handleGetPositions))
	mux.HandleFunc("POST /positions", s.instrument("/positions", s.handleReportPosition))
	mux.HandleFunc("PUT /positions", s.instrument("/positions", s.handleExportPositions))
	mux.HandleFunc("GET /positions/stream", s.handlePositionStream)

	// Notifications
	mux.HandleFunc("GET /notifications", s.instrument("/notifications", s.handleListNotifications))
	mux.HandleFunc("POST /notifications", s.instrument("/notifications", s.handleCreateNotification))
	mux.HandleFunc("PUT /notifications", s.instrument("/notifications", s.handleMarkNotifications))
	mux.HandleFunc("DELETE /notifications", s.instrument("/notifications", s.handleDeleteNotification))

	return mux
}

// handleHealth responds to health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
