// Package api serves the dittocore admin HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/pkg/api/auth"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/marmos91/dittocore/pkg/metrics"
)

// Server provides the admin HTTP API of one server incarnation.
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	jwtService   *auth.JWTService
	port         atomic.Int64
	shutdownOnce sync.Once
}

// NewServer creates a new admin API server for st.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests. The JWT secret must be configured via admin.jwt.secret or the
// DITTOCORE_ADMIN_SECRET environment variable. httpMetrics may be nil.
func NewServer(cfg config.AdminConfig, st *lifecycle.State, httpMetrics *metrics.HTTPMetrics) (*Server, error) {
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:        cfg.JWTSecret(),
		TokenDuration: cfg.JWT.TokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("admin API: %w; set it via %s or admin.jwt.secret", err, config.EnvAdminSecret)
	}

	s := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewRouter(st, jwtService, httpMetrics),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		jwtService: jwtService,
	}
	s.port.Store(int64(cfg.Port))
	return s, nil
}

// Handler returns the router, for in-process tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// JWTService returns the token service the server validates against.
func (s *Server) JWTService() *auth.JWTService { return s.jwtService }

// Start starts the API HTTP server and blocks until the context is
// cancelled or an error occurs. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port.Store(int64(addr.Port))
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.KeyAddress, ln.Addr().String())
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.Port()),
			"status", fmt.Sprintf("http://localhost:%d/api/v1/status", s.Port()),
		)

		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Debug("API server shutdown signal received")
		// The cancelled ctx would abort the shutdown immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server. It is safe to call
// multiple times and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.Err(err))
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port, resolved once Start has bound.
func (s *Server) Port() int {
	return int(s.port.Load())
}
