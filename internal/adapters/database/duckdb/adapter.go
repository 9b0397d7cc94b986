// Package duckdb implements the DuckDB database adapter.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/duckdb/duckdb-go/v2" // DuckDB driver

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/core/database/pool"
)

// DuckDBAdapter implements the database.Adapter interface for DuckDB.
type DuckDBAdapter struct {
	pool   *pool.Pool
	config database.Config
	path   string
}

// NewDuckDBAdapter creates a new DuckDB adapter. An empty path or
// ":memory:" opens an in-memory database.
func NewDuckDBAdapter(config database.Config) (*DuckDBAdapter, error) {
	return &DuckDBAdapter{
		config: config,
		path:   ParsePath(config.URL),
	}, nil
}

// ParsePath strips the "duckdb://" prefix and any parameters.
func ParsePath(url string) string {
	path := strings.TrimPrefix(url, "duckdb://")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// BuildDSN returns the driver connection string. In-memory databases cannot
// be opened read-only.
func BuildDSN(path string, readOnly bool) string {
	if path == "" || path == ":memory:" {
		return ""
	}
	if readOnly {
		return path + "?access_mode=read_only"
	}
	return path
}

// Connect opens the pool and pings the database.
func (a *DuckDBAdapter) Connect(ctx context.Context) error {
	p, err := pool.New("duckdb", BuildDSN(a.path, a.config.ReadOnly), a.config.PoolConfig())
	if err != nil {
		return database.ConnectError("duckdb", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()

	if err := p.HealthCheck(ctx); err != nil {
		p.Close()
		return database.ConnectError("duckdb", err)
	}

	a.pool = p
	return nil
}

// Disconnect closes the pool.
func (a *DuckDBAdapter) Disconnect(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	err := a.pool.Close()
	a.pool = nil
	return err
}

// Conn checks out a scoped connection.
func (a *DuckDBAdapter) Conn(ctx context.Context) (*sql.Conn, error) {
	if a.pool == nil {
		return nil, database.ErrNotConnected
	}
	return a.pool.Conn(ctx)
}

// Ping checks if the database connection is alive.
func (a *DuckDBAdapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return database.ErrNotConnected
	}
	return a.pool.HealthCheck(ctx)
}

// Stats returns pool statistics.
func (a *DuckDBAdapter) Stats() pool.PoolStats {
	if a.pool == nil {
		return pool.PoolStats{}
	}
	return a.pool.Stats()
}

// IsUnavailable treats connection, I/O and interrupt errors as unavailability.
func (a *DuckDBAdapter) IsUnavailable(err error) bool {
	if database.IsConnectionError(err) {
		return true
	}
	var de *duckdb.Error
	if errors.As(err, &de) {
		switch de.Type {
		case duckdb.ErrorTypeConnection, duckdb.ErrorTypeIO, duckdb.ErrorTypeInterrupt:
			return true
		}
	}
	return false
}

// GetDialect returns the SQL dialect.
func (a *DuckDBAdapter) GetDialect() database.SQLDialect {
	return database.DuckDB
}

// FilePath returns the database file, or "" for an in-memory database.
func (a *DuckDBAdapter) FilePath() string {
	if a.path == ":memory:" {
		return ""
	}
	return a.path
}

var (
	_ database.Adapter    = (*DuckDBAdapter)(nil)
	_ database.FileBacked = (*DuckDBAdapter)(nil)
)
