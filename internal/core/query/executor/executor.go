// Package executor runs compiled statements on a scoped backend connection
// and normalizes the rows.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/core/query/mapper"
)

// ConnProvider hands out scoped connections and classifies backend errors.
// database.Adapter satisfies it.
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
	IsUnavailable(err error) bool
}

// QueryExecutor executes statements. It holds no connection between calls.
type QueryExecutor struct {
	db     ConnProvider
	logger *slog.Logger
}

// NewQueryExecutor creates a new query executor.
func NewQueryExecutor(db ConnProvider, logger *slog.Logger) *QueryExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryExecutor{
		db:     db,
		logger: logger,
	}
}

// Execute runs stmt and maps each row onto projection. The connection is
// released on every return path. Failures are either
// *domain.BackendUnavailableError or *domain.BackendExecutionError; nothing
// is retried.
func (e *QueryExecutor) Execute(ctx context.Context, stmt *domain.Statement, projection []domain.ColumnDescriptor) (*domain.QueryResult, error) {
	if e.db == nil {
		return nil, &domain.BackendUnavailableError{Operation: "execute", Cause: fmt.Errorf("database adapter not initialized")}
	}

	start := time.Now()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, &domain.BackendUnavailableError{Operation: "connect", Cause: err}
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, e.classify(stmt, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, e.classify(stmt, err)
	}
	if len(columns) != len(projection) {
		return nil, &domain.BackendExecutionError{
			Query: stmt.SQL,
			Cause: fmt.Errorf("backend returned %d columns for a projection of %d", len(columns), len(projection)),
		}
	}

	m := mapper.NewResultMapper(projection)
	result := &domain.QueryResult{Query: stmt.SQL, Rows: []domain.Row{}}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, e.classify(stmt, err)
		}
		row, err := m.MapRow(values)
		if err != nil {
			return nil, &domain.BackendExecutionError{Query: stmt.SQL, Cause: err}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, e.classify(stmt, err)
	}

	e.logger.Debug("query executed",
		"rows", len(result.Rows),
		"columns", len(projection),
		"args", len(stmt.Args),
		"duration", time.Since(start))

	return result, nil
}

func (e *QueryExecutor) classify(stmt *domain.Statement, err error) error {
	if e.db.IsUnavailable(err) {
		return &domain.BackendUnavailableError{Operation: "execute", Cause: err}
	}
	return &domain.BackendExecutionError{Query: stmt.SQL, Cause: err}
}
