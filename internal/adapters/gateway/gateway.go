// Package gateway exposes the query service over HTTP.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/satishbabariya/querygate/internal/adapters/telemetry"
	"github.com/satishbabariya/querygate/internal/core/database/pool"
	"github.com/satishbabariya/querygate/internal/core/query/cache"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
)

// Service is the core the gateway serves.
type Service interface {
	ListTables(ctx context.Context) ([]string, error)
	TableInfo(ctx context.Context, table string) (*domain.TableInfo, error)
	RunQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
	Telemetry() telemetry.Telemetry
	PlanCacheStats() cache.Stats
	CatalogBuiltAt() time.Time
}

// Backend reports database health.
type Backend interface {
	Ping(ctx context.Context) error
	Stats() pool.PoolStats
}

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// Server is the HTTP gateway.
type Server struct {
	svc     Service
	backend Backend
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
}

// NewServer creates a gateway for svc.
func NewServer(svc Service, backend Backend, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		svc:     svc,
		backend: backend,
		cfg:     cfg,
		logger:  logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the gateway's root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. In-flight requests get
// ShutdownTimeout to complete.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("gateway listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gateway", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
