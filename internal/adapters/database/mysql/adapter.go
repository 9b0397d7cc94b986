// Package mysql implements the MySQL database adapter.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/core/database/pool"
)

// MySQLAdapter implements the database.Adapter interface for MySQL.
type MySQLAdapter struct {
	pool   *pool.Pool
	config database.Config
}

// NewMySQLAdapter creates a new MySQL adapter.
func NewMySQLAdapter(config database.Config) (*MySQLAdapter, error) {
	if config.URL == "" {
		return nil, errors.New("mysql: empty connection string")
	}
	return &MySQLAdapter{config: config}, nil
}

// BuildDSN parses a go-sql-driver DSN, optionally prefixed with "mysql://",
// and sets the dial timeout. Read-only sessions set transaction_read_only,
// which the driver applies with SET on every new connection. DATETIME
// values are left as text.
func BuildDSN(dsn string, readOnly bool, timeout time.Duration) (string, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return "", err
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.ParseTime = false
	if readOnly {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["transaction_read_only"] = "1"
	}
	return cfg.FormatDSN(), nil
}

// Connect opens the pool and pings the server.
func (a *MySQLAdapter) Connect(ctx context.Context) error {
	dsn, err := BuildDSN(a.config.URL, a.config.ReadOnly, a.config.Timeout())
	if err != nil {
		return database.ConnectError("mysql", err)
	}

	p, err := pool.New("mysql", dsn, a.config.PoolConfig())
	if err != nil {
		return database.ConnectError("mysql", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()

	if err := p.HealthCheck(ctx); err != nil {
		p.Close()
		return database.ConnectError("mysql", err)
	}

	a.pool = p
	return nil
}

// Disconnect closes the pool.
func (a *MySQLAdapter) Disconnect(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	err := a.pool.Close()
	a.pool = nil
	return err
}

// Conn checks out a scoped connection.
func (a *MySQLAdapter) Conn(ctx context.Context) (*sql.Conn, error) {
	if a.pool == nil {
		return nil, database.ErrNotConnected
	}
	return a.pool.Conn(ctx)
}

// Ping checks if the database connection is alive.
func (a *MySQLAdapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return database.ErrNotConnected
	}
	return a.pool.HealthCheck(ctx)
}

// Stats returns pool statistics.
func (a *MySQLAdapter) Stats() pool.PoolStats {
	if a.pool == nil {
		return pool.PoolStats{}
	}
	return a.pool.Stats()
}

// Server and client error numbers that mean the server cannot be reached or
// dropped the session.
var unavailableCodes = map[uint16]bool{
	1040: true, // ER_CON_COUNT_ERROR
	1053: true, // ER_SERVER_SHUTDOWN
	2002: true, // CR_CONNECTION_ERROR
	2003: true, // CR_CONN_HOST_ERROR
	2006: true, // CR_SERVER_GONE_ERROR
	2013: true, // CR_SERVER_LOST
}

// IsUnavailable reports connection failures.
func (a *MySQLAdapter) IsUnavailable(err error) bool {
	if database.IsConnectionError(err) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return unavailableCodes[myErr.Number]
	}
	return false
}

// GetDialect returns the SQL dialect.
func (a *MySQLAdapter) GetDialect() database.SQLDialect {
	return database.MySQL
}

var _ database.Adapter = (*MySQLAdapter)(nil)
