// Package server wires the authoritative store behind the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/notesync/internal/server/handlers"
	"github.com/iudanet/notesync/internal/server/middleware"
	"github.com/iudanet/notesync/internal/server/storage"
)

const shutdownTimeout = 10 * time.Second

// Config зависимости HTTP сервера
type Config struct {
	Store    storage.Store
	Tokens   middleware.TokenValidator
	Gatherer prometheus.Gatherer
	// Pinger проверяет хранилище в health check, может быть nil
	Pinger  handlers.Pinger
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Addr    string
	Version string
	// RateLimit запросов пользователя в минуту к защищённым маршрутам, 0 без ограничения
	RateLimit int
}

// NewRouter builds the API routes. Health and metrics are served without authentication.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	syncHandler := handlers.NewSyncHandler(logger, cfg.Store)
	healthHandler := handlers.NewHealthHandler(logger, cfg.Pinger, cfg.Version)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/v1/sync/operations", syncHandler.ApplyOperation)
	protected.HandleFunc("GET /api/v1/sync/changes", syncHandler.Changes)
	protected.HandleFunc("GET /api/v1/records/{id}", syncHandler.Record)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var limited http.Handler = protected
	if cfg.RateLimit > 0 {
		limited = middleware.RateLimit(logger, middleware.NewRateLimiter(cfg.RateLimit, time.Minute, clock))(limited)
	}
	mux.Handle("/api/v1/", middleware.Auth(logger, cfg.Tokens)(limited))

	return middleware.Chain(mux,
		middleware.Recovery(logger),
		middleware.Logging(logger, clock, "/metrics", "/api/v1/health"),
	)
}

// Server HTTP сервер синхронизации
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server listening on cfg.Addr
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server started", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
