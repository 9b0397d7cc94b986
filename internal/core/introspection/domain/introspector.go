package domain

import (
	"context"
	"database/sql"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Introspector reflects tables and columns from a live backend.
type Introspector interface {
	// IntrospectDatabase returns every base table in the current schema,
	// including the backend's internal tables. Filtering is left to the caller.
	IntrospectDatabase(ctx context.Context, q Querier) (*IntrospectedDatabase, error)

	// IntrospectTable returns the columns of one table in declared order.
	IntrospectTable(ctx context.Context, q Querier, tableName string) (*IntrospectedTable, error)

	// GetDatabaseVersion returns the backend version string.
	GetDatabaseVersion(ctx context.Context, q Querier) (string, error)

	// ReservedPrefixes lists the name prefixes of the backend's internal tables.
	ReservedPrefixes() []string

	// MinimumVersion is the oldest backend version the reflection queries support.
	MinimumVersion() string
}
