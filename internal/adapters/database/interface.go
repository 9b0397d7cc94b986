// Package database defines the backend connection provider seam.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/satishbabariya/querygate/internal/core/database/pool"
)

// Adapter is a relational backend the gateway can reflect and query.
type Adapter interface {
	// Connect opens the pool and verifies the backend answers.
	Connect(ctx context.Context) error

	// Disconnect closes the pool.
	Disconnect(ctx context.Context) error

	// Conn checks out a scoped connection. The caller must Close it on every path.
	Conn(ctx context.Context) (*sql.Conn, error)

	// Ping checks the backend connection.
	Ping(ctx context.Context) error

	// Stats returns pool statistics.
	Stats() pool.PoolStats

	// IsUnavailable reports whether err is a connection or transport failure
	// rather than a rejected statement.
	IsUnavailable(err error) bool

	// GetDialect returns the SQL dialect.
	GetDialect() SQLDialect
}

// FileBacked is implemented by adapters whose database is a local file.
type FileBacked interface {
	FilePath() string
}

// SQLDialect represents a SQL dialect.
type SQLDialect string

const (
	// PostgreSQL dialect.
	PostgreSQL SQLDialect = "postgres"
	// MySQL dialect.
	MySQL SQLDialect = "mysql"
	// SQLite dialect.
	SQLite SQLDialect = "sqlite"
	// DuckDB dialect.
	DuckDB SQLDialect = "duckdb"
)

// Config holds database connection configuration.
type Config struct {
	Provider        string
	URL             string
	MaxConnections  int
	MaxIdleConns    int
	MaxIdleTime     time.Duration
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	HealthCheck     time.Duration
	ReadOnly        bool
}

// PoolConfig derives pool settings from c, falling back to pool defaults.
func (c Config) PoolConfig() pool.Config {
	cfg := pool.DefaultConfig()
	if c.MaxConnections > 0 {
		cfg.MaxOpenConns = c.MaxConnections
	}
	if c.MaxIdleConns > 0 {
		cfg.MaxIdleConns = c.MaxIdleConns
	}
	if c.MaxIdleTime > 0 {
		cfg.ConnMaxIdleTime = c.MaxIdleTime
	}
	if c.ConnMaxLifetime > 0 {
		cfg.ConnMaxLifetime = c.ConnMaxLifetime
	}
	cfg.HealthCheckInterval = c.HealthCheck
	return cfg
}

// Timeout returns the connect timeout, defaulting to ten seconds.
func (c Config) Timeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ConnectTimeout
}
