// Package httpserver wraps net/http with the graceful startup/shutdown
// lifecycle the teacher's gRPC server wrapper uses, adapted to the
// plain HTTP + H2C surface every hosh role serves.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"hosh/pkg/config"
	"hosh/pkg/logger"
)

// Server wraps a net/http.Server with H2C support and a graceful
// shutdown sequence tied to SIGINT/SIGTERM.
type Server struct {
	httpServer *http.Server
	addr       string
}

// New builds a Server bound to cfg.Bind.Addr(), serving handler over
// HTTP/1.1 and H2C (no TLS termination is done by hosh itself).
func New(cfg *config.Config, handler http.Handler) *Server {
	addr := cfg.Bind.Addr()
	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      h2c.NewHandler(handler, &http2.Server{}),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

// Run starts the server and blocks until it receives SIGINT/SIGTERM,
// then shuts down gracefully within the configured shutdown timeout.
func (s *Server) Run(shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Log.Info("http server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		logger.Log.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Log.Info("http server stopped")
	return nil
}

// Shutdown shuts the server down immediately, for use when the
// process is coordinating shutdown of multiple roles itself (see
// cmd/hosh) rather than letting Run own signal handling.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ListenAndServe starts the server without owning signal handling;
// the caller is responsible for calling Shutdown.
func (s *Server) ListenAndServe() error {
	logger.Log.Info("http server listening", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
