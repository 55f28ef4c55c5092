// Package api provides the HTTP status server used by tcpscan's watch mode.
// It exposes liveness, the state of scheduled scans, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/gabrier01/tcpscan01/internal/api/middleware"
	"github.com/gabrier01/tcpscan01/internal/logging"
	"github.com/gabrier01/tcpscan01/internal/metrics"
	"github.com/gabrier01/tcpscan01/internal/scheduler"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 10 * time.Second
)

// StatusProvider reports the scheduled scan jobs.
type StatusProvider interface {
	Jobs() []scheduler.JobStatus
}

// Config holds API server configuration.
type Config struct {
	ListenAddr     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	Version        string
}

// DefaultConfig returns default API server configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     "127.0.0.1:9115",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// Server represents the status server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     *logging.Logger
	metrics    *metrics.PrometheusMetrics
	status     StatusProvider
	version    string
	startTime  time.Time
}

// New creates a new status server. metrics may be nil, in which case
// /metrics answers 404.
func New(cfg Config, status StatusProvider, m *metrics.PrometheusMetrics, logger *logging.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger.WithComponent("api"),
		metrics:   m,
		status:    status,
		version:   cfg.Version,
		startTime: time.Now(),
	}

	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("status server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting status server", "address", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("status server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Status server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Status server stopped")
	return nil
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.livenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.versionHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery(s.logger.Logger))
	s.router.Use(middleware.Logging(s.logger.Logger))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.Compression())
	s.router.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet}),
	))
}

// LivenessResponse is returned by /healthz.
type LivenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// StatusResponse is returned by /status.
type StatusResponse struct {
	Jobs      []scheduler.JobStatus `json:"jobs"`
	Timestamp time.Time             `json:"timestamp"`
}

func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if s.status != nil {
		jobs = s.status.Jobs()
	}
	s.writeJSON(w, r, http.StatusOK, StatusResponse{
		Jobs:      jobs,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) metricsHandler() http.Handler {
	if s.metrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "metrics disabled"})
		})
	}
	return s.metrics.Handler()
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			"error", err,
			"path", r.URL.Path)
	}
}
