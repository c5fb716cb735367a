// Package core is the HTTP chassis of the floodwatch API: a chi router with
// the cross-cutting middleware (recovery, request ids, logging, CORS,
// metrics, rate limiting, compression) applied before domain handlers run.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"floodwatch/internal/config"
)

// MetricsCollector records API request telemetry.
type MetricsCollector interface {
	RecordRequest(method, route, status string, duration time.Duration)
}

// Server holds the router and everything the middleware chain needs.
// Optional collaborators may be nil.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	HealthProbes   []HealthProbe
	RateLimitStore RateLimitStore

	// V1RouteRegistrars mount domain handlers under /v1. cmd/api fills
	// them in so core never imports the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// Closers are released in order by Shutdown.
	Closers []io.Closer

	router *chi.Mux
}

// NewServer creates a Server. Routes are mounted separately by MountRoutes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router wrapped in gzip compression.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Router exposes the chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases every closer and reports all failures together.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	var errs []error
	for _, c := range s.Closers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.Close(); err != nil {
			s.Logger.Error("error closing resource", "error", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
