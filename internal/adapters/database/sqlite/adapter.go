// Package sqlite implements the SQLite database adapter.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/core/database/pool"
)

// SQLiteAdapter implements the database.Adapter interface for SQLite.
type SQLiteAdapter struct {
	pool   *pool.Pool
	config database.Config
	path   string
}

// NewSQLiteAdapter creates a new SQLite adapter. The URL is a file path,
// optionally prefixed with "sqlite://", "sqlite:" or "file:".
func NewSQLiteAdapter(config database.Config) (*SQLiteAdapter, error) {
	path := ParsePath(config.URL)
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	return &SQLiteAdapter{
		config: config,
		path:   path,
	}, nil
}

// ParsePath strips scheme prefixes and URI parameters from a SQLite URL.
func ParsePath(url string) string {
	path := url
	for _, prefix := range []string{"sqlite3://", "sqlite://", "sqlite3:", "sqlite:", "file:"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// BuildDSN returns a URI filename for go-sqlite3. Read-only connections open
// the file with mode=ro and also set PRAGMA query_only, so a missing file is
// reported instead of created.
func BuildDSN(path string, readOnly bool) string {
	if path == ":memory:" {
		return path
	}
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
	params := []string{"_busy_timeout=5000"}
	if readOnly {
		params = append(params, "mode=ro", "_query_only=true")
	}
	return "file:" + escaped + "?" + strings.Join(params, "&")
}

// Connect opens the pool and pings the database.
func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	cfg := a.config.PoolConfig()
	if a.path == ":memory:" {
		// Every connection to :memory: is a separate database.
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
		cfg.ConnMaxIdleTime = 0
	}

	p, err := pool.New("sqlite3", BuildDSN(a.path, a.config.ReadOnly), cfg)
	if err != nil {
		return database.ConnectError("sqlite", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()

	if err := p.HealthCheck(ctx); err != nil {
		p.Close()
		return database.ConnectError("sqlite", err)
	}

	a.pool = p
	return nil
}

// Disconnect closes the pool.
func (a *SQLiteAdapter) Disconnect(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	err := a.pool.Close()
	a.pool = nil
	return err
}

// Conn checks out a scoped connection.
func (a *SQLiteAdapter) Conn(ctx context.Context) (*sql.Conn, error) {
	if a.pool == nil {
		return nil, database.ErrNotConnected
	}
	return a.pool.Conn(ctx)
}

// Ping checks if the database connection is alive.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return database.ErrNotConnected
	}
	return a.pool.HealthCheck(ctx)
}

// Stats returns pool statistics.
func (a *SQLiteAdapter) Stats() pool.PoolStats {
	if a.pool == nil {
		return pool.PoolStats{}
	}
	return a.pool.Stats()
}

// IsUnavailable treats file, I/O and lock failures as unavailability.
func (a *SQLiteAdapter) IsUnavailable(err error) bool {
	if database.IsConnectionError(err) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB,
			sqlite3.ErrCorrupt, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return true
		}
	}
	return false
}

// GetDialect returns the SQL dialect.
func (a *SQLiteAdapter) GetDialect() database.SQLDialect {
	return database.SQLite
}

// FilePath returns the database file, or "" for an in-memory database.
func (a *SQLiteAdapter) FilePath() string {
	if a.path == ":memory:" {
		return ""
	}
	return a.path
}

var (
	_ database.Adapter    = (*SQLiteAdapter)(nil)
	_ database.FileBacked = (*SQLiteAdapter)(nil)
)
