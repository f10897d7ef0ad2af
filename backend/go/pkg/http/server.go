package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"file-organizer/backend/go/internal/config"
)

// Server is a thin wrapper around http.Server serving a single handler
// (normally a gin engine).
type Server struct {
	httpServer *http.Server
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// NewServer creates a Server for handler using the timeouts in cfg.
func NewServer(cfg config.ServerConfig, handler http.Handler, opts ...ServerOption) *Server {
	srv := &Server{
		httpServer: &http.Server{
			Handler:      handler,
			ReadTimeout:  config.Duration(cfg.ReadTimeout, 30*time.Second),
			WriteTimeout: config.Duration(cfg.WriteTimeout, 120*time.Second),
		},
	}
	if cfg.Port != 0 {
		srv.httpServer.Addr = fmt.Sprintf(":%d", cfg.Port)
	}

	for _, opt := range opts {
		opt(srv)
	}

	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":5000"
	}
	return srv
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
