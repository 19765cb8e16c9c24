// Package api exposes the policy request workflow over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-insurance/heron/internal/domain"
	"github.com/opensource-insurance/heron/internal/workflow"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server with the full middleware stack and
// routes.
func NewServer(cfg domain.ServerConfig, svc *workflow.Service, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Server {
	handler := NewHandler(svc, repo, cache, bus, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(RecoverMiddleware) // Recover from panics
	router.Use(TracingMiddleware) // OpenTelemetry tracing
	router.Use(LoggingMiddleware) // Request logging
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Route("/api/v1/policy-requests", func(r chi.Router) {
		r.Post("/", handler.CreatePolicyRequest)
		r.Get("/{id}", handler.GetPolicyRequest)
		r.Get("/customer/{customerId}", handler.ListByCustomer)

		r.Post("/{id}/validate", handler.Validate)
		r.Post("/{id}/fraud-analysis", handler.FraudAnalysis)
		r.Post("/{id}/payment", handler.Payment)
		r.Post("/{id}/subscription", handler.Subscription)
		r.Post("/{id}/cancel", handler.Cancel)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
