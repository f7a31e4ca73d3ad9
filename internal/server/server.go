// Package server exposes the analytics and forecast API consumed by the
// dashboard front end.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/internal/config"
)

// Server wraps the HTTP listener around the API handlers.
type Server struct {
	config     *config.ServerConfig
	httpServer *http.Server
	logger     *logrus.Logger
}

// New creates the server over an already-assembled handler set.
func New(cfg *config.ServerConfig, handlers *Handlers, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	router := NewRouter(handlers, logger)
	return &Server{
		config: cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.WithField("address", s.httpServer.Addr).Info("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
