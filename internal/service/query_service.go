// Package service implements the three gateway operations: listTables,
// tableInfo and runQuery.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/satishbabariya/querygate/internal/adapters/telemetry"
	"github.com/satishbabariya/querygate/internal/core/catalog"
	"github.com/satishbabariya/querygate/internal/core/query/cache"
	"github.com/satishbabariya/querygate/internal/core/query/compiler"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/core/query/executor"
	"github.com/satishbabariya/querygate/internal/core/query/validator"
)

// QueryService orchestrates validation, compilation and execution.
type QueryService struct {
	catalog   *catalog.Catalog
	validator *validator.Validator
	compiler  *compiler.SQLCompiler
	executor  *executor.QueryExecutor
	telemetry telemetry.Telemetry
	logger    *slog.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(
	cat *catalog.Catalog,
	comp *compiler.SQLCompiler,
	exec *executor.QueryExecutor,
	tel telemetry.Telemetry,
	logger *slog.Logger,
) *QueryService {
	if tel == nil {
		tel = telemetry.NewNoopTelemetry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		catalog:   cat,
		validator: validator.New(cat),
		compiler:  comp,
		executor:  exec,
		telemetry: tel,
		logger:    logger,
	}
}

// ListTables returns the visible tables in lexicographic order.
func (s *QueryService) ListTables(ctx context.Context) ([]string, error) {
	tables, err := s.catalog.ListTables(ctx)
	if err != nil {
		s.recordError(ctx, "list_tables", "", err)
		return nil, err
	}
	return tables, nil
}

// TableInfo returns the declared columns of one table.
func (s *QueryService) TableInfo(ctx context.Context, table string) (*domain.TableInfo, error) {
	cols, err := s.catalog.Describe(ctx, table)
	if err != nil {
		s.recordError(ctx, "table_info", table, err)
		return nil, err
	}
	return &domain.TableInfo{Table: table, Columns: cols}, nil
}

// Explain validates and compiles req without touching the backend.
func (s *QueryService) Explain(ctx context.Context, req domain.QueryRequest) (*domain.Statement, error) {
	plan, err := s.validator.Validate(ctx, req)
	if err != nil {
		s.recordError(ctx, "explain", req.Table, err)
		return nil, err
	}
	stmt, err := s.compiler.Compile(ctx, plan)
	if err != nil {
		s.recordError(ctx, "explain", req.Table, err)
		return nil, err
	}
	return stmt, nil
}

// RunQuery validates, compiles and executes req. Each stage short-circuits
// the rest; the backend is only reached with a fully validated plan.
func (s *QueryService) RunQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()

	result, err := s.runQuery(ctx, req)

	info := telemetry.QueryInfo{Table: req.Table, Duration: time.Since(start), Success: err == nil}
	if result != nil {
		info.Rows = len(result.Rows)
	}
	s.telemetry.RecordQuery(ctx, info)

	if err != nil {
		s.recordError(ctx, "run_query", req.Table, err)
		return nil, err
	}

	s.logger.Debug("query served",
		"table", req.Table,
		"rows", len(result.Rows),
		"duration", info.Duration)
	return result, nil
}

func (s *QueryService) runQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	plan, err := s.validator.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	stmt, err := s.compiler.Compile(ctx, plan)
	if err != nil {
		return nil, err
	}
	return s.executor.Execute(ctx, stmt, plan.Projection)
}

// Refresh rebuilds the catalog. The template cache is cleared by the
// catalog's refresh hook.
func (s *QueryService) Refresh(ctx context.Context) error {
	if err := s.catalog.Refresh(ctx); err != nil {
		s.recordError(ctx, "refresh", "", err)
		return err
	}
	return nil
}

// Telemetry returns the service's telemetry adapter.
func (s *QueryService) Telemetry() telemetry.Telemetry {
	return s.telemetry
}

// PlanCacheStats returns compiled-template cache statistics.
func (s *QueryService) PlanCacheStats() cache.Stats {
	return s.compiler.CacheStats()
}

// CatalogBuiltAt returns when the catalog snapshot in use was built, or the
// zero time before the first build.
func (s *QueryService) CatalogBuiltAt() time.Time {
	return s.catalog.BuiltAt()
}

// Compiler returns the statement compiler.
func (s *QueryService) Compiler() *compiler.SQLCompiler {
	return s.compiler
}

func (s *QueryService) recordError(ctx context.Context, op, table string, err error) {
	kind := ErrorKind(err)
	s.telemetry.RecordError(ctx, telemetry.ErrorInfo{Error: err, Kind: kind, Operation: op, Table: table})

	switch {
	case domain.IsClientError(err), errors.Is(err, domain.ErrBackendExecution):
		s.logger.Warn("request rejected", "operation", op, "table", table, "kind", kind, "error", err)
	default:
		s.logger.Error("request failed", "operation", op, "table", table, "kind", kind, "error", err)
	}
}

// ErrorKind names the class of err as reported to clients.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingTable):
		return "missing_table"
	case errors.Is(err, domain.ErrUnknownTable):
		return "unknown_table"
	case errors.Is(err, domain.ErrUnknownColumn):
		return "unknown_column"
	case errors.Is(err, domain.ErrDuplicateColumn):
		return "duplicate_column"
	case errors.Is(err, domain.ErrInvalidFilterValue):
		return "invalid_filter_value"
	case errors.Is(err, domain.ErrBackendExecution):
		return "backend_execution"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "internal"
	}
}
