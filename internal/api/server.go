package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/reachops/outreach-gateway/internal/config"
)

// Server wraps the HTTP server around the configured router.
type Server struct {
	config   config.ServerConfig
	handlers *Handlers
	handler  http.Handler
	server   *http.Server
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	handlers := NewHandlers(deps)
	return &Server{
		config:   cfg,
		handlers: handlers,
		handler:  SetupRoutes(handlers),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.GetHost(), s.config.Port),
		Handler: s.handler,
		// Webhook bodies are capped at 1 MiB, so short timeouts are safe.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
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

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
