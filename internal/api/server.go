// Package api provides the HTTP server exposing the codec service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/axonops/protodyn/internal/config"
	"github.com/axonops/protodyn/internal/metrics"
	"github.com/axonops/protodyn/internal/registry"
)

// Server represents the HTTP server.
type Server struct {
	config     *config.Config
	registry   *registry.Registry
	router     chi.Router
	server     *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	instanceID string
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, reg *registry.Registry, logger *slog.Logger, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		config:     cfg,
		registry:   reg,
		logger:     logger,
		metrics:    m,
		instanceID: uuid.NewString(),
	}
	s.setupRouter()
	return s
}

// Metrics returns the metrics instance.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// InstanceID returns the server's unique instance identifier.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures the HTTP router.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", s.handleInfo)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		s.metrics.Handler().ServeHTTP(w, req)
	})

	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", s.handleListSchemas)
		r.Post("/", s.handleRegisterSchema)
		r.Route("/{schema}", func(r chi.Router) {
			r.Get("/", s.handleGetSchema)
			r.Delete("/", s.handleDeleteSchema)
			r.Post("/messages/{message}/encode", s.handleEncode)
			r.Post("/messages/{message}/decode", s.handleDecode)
		})
	})

	s.router = r
}

// loggingMiddleware logs each request with its duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Address(),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening",
			slog.String("address", s.config.Address()),
			slog.String("instance_id", s.instanceID),
		)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
