// Package server exposes the generated output tree over HTTP for
// downstream consumers, with request logging, metrics and per-client
// rate limiting.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Nicaras/memilio/config"
	"github.com/Nicaras/memilio/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the output artifacts of the dataset pipelines.
type Server struct {
	server    *http.Server
	router    chi.Router
	cfg       *config.Config
	refresher *scheduler.Scheduler
}

// New creates a server for the output tree described by cfg. The
// refresher is optional; when present its state is exposed on /health.
func New(cfg *config.Config, refresher *scheduler.Scheduler) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:    router,
		cfg:       cfg,
		refresher: refresher,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(slogMiddleware)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metricsMiddleware)
	s.router.Use(rateLimitMiddleware(newRateLimiter()))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)
	s.router.Get("/datasets", s.listDatasets)
	s.router.Get("/datasets/{country}/{file}", s.serveDataset)
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
