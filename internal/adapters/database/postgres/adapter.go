// Package postgres implements the PostgreSQL database adapter.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq" // PostgreSQL driver

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/core/database/pool"
)

// PostgresAdapter implements the database.Adapter interface for PostgreSQL.
type PostgresAdapter struct {
	pool   *pool.Pool
	config database.Config
}

// NewPostgresAdapter creates a new PostgreSQL adapter.
func NewPostgresAdapter(config database.Config) (*PostgresAdapter, error) {
	if config.URL == "" {
		return nil, errors.New("postgres: empty connection string")
	}
	return &PostgresAdapter{config: config}, nil
}

// BuildDSN adds the connect timeout and, for read-only access, the
// default_transaction_read_only run-time parameter. lib/pq forwards unknown
// keys to the server as run-time parameters. Both URL and key=value forms
// are accepted.
func BuildDSN(dsn string, readOnly bool, timeoutSeconds int) (string, error) {
	params := map[string]string{}
	if timeoutSeconds > 0 {
		params["connect_timeout"] = strconv.Itoa(timeoutSeconds)
	}
	if readOnly {
		params["default_transaction_read_only"] = "on"
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		q := u.Query()
		for k, v := range params {
			if q.Get(k) == "" {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(dsn))
	for _, k := range []string{"connect_timeout", "default_transaction_read_only"} {
		v, ok := params[k]
		if !ok || strings.Contains(dsn, k+"=") {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
	}
	return strings.TrimSpace(sb.String()), nil
}

// Connect opens the pool and pings the server.
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	dsn, err := BuildDSN(a.config.URL, a.config.ReadOnly, int(a.config.Timeout().Seconds()))
	if err != nil {
		return database.ConnectError("postgres", err)
	}

	p, err := pool.New("postgres", dsn, a.config.PoolConfig())
	if err != nil {
		return database.ConnectError("postgres", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()

	if err := p.HealthCheck(ctx); err != nil {
		p.Close()
		return database.ConnectError("postgres", err)
	}

	a.pool = p
	return nil
}

// Disconnect closes the pool.
func (a *PostgresAdapter) Disconnect(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	err := a.pool.Close()
	a.pool = nil
	return err
}

// Conn checks out a scoped connection.
func (a *PostgresAdapter) Conn(ctx context.Context) (*sql.Conn, error) {
	if a.pool == nil {
		return nil, database.ErrNotConnected
	}
	return a.pool.Conn(ctx)
}

// Ping checks if the database connection is alive.
func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return database.ErrNotConnected
	}
	return a.pool.HealthCheck(ctx)
}

// Stats returns pool statistics.
func (a *PostgresAdapter) Stats() pool.PoolStats {
	if a.pool == nil {
		return pool.PoolStats{}
	}
	return a.pool.Stats()
}

// IsUnavailable treats connection exceptions (08), insufficient resources
// (53) and operator intervention (57) as unavailability.
func (a *PostgresAdapter) IsUnavailable(err error) bool {
	if database.IsConnectionError(err) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
	}
	return false
}

// GetDialect returns the SQL dialect.
func (a *PostgresAdapter) GetDialect() database.SQLDialect {
	return database.PostgreSQL
}

var _ database.Adapter = (*PostgresAdapter)(nil)
