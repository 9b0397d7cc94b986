// Package postgresql implements PostgreSQL schema reflection.
package postgresql

import (
	"context"
	"fmt"

	"github.com/satishbabariya/querygate/internal/core/introspection/domain"
)

// Introspector implements domain.Introspector for PostgreSQL. Reflection is
// scoped to current_schema().
type Introspector struct{}

// NewIntrospector creates a new PostgreSQL introspector.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

// IntrospectDatabase introspects every base table of the current schema.
func (i *Introspector) IntrospectDatabase(ctx context.Context, q domain.Querier) (*domain.IntrospectedDatabase, error) {
	var schema string
	if err := q.QueryRowContext(ctx, "SELECT current_schema()").Scan(&schema); err != nil {
		return nil, fmt.Errorf("failed to get current schema: %w", err)
	}

	names, err := i.tableNames(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in schema %s: %w", schema, err)
	}

	result := &domain.IntrospectedDatabase{Tables: make([]domain.IntrospectedTable, 0, len(names))}
	for _, name := range names {
		table, err := i.IntrospectTable(ctx, q, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		table.Schema = schema
		result.Tables = append(result.Tables, *table)
	}
	return result, nil
}

func (i *Introspector) tableNames(ctx context.Context, q domain.Querier, schema string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := q.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// IntrospectTable introspects the columns of one table.
func (i *Introspector) IntrospectTable(ctx context.Context, q domain.Querier, tableName string) (*domain.IntrospectedTable, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.ordinal_position,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
				  ON tc.constraint_name = kcu.constraint_name
				 AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
				  AND tc.table_schema = c.table_schema
				  AND tc.table_name = c.table_name
				  AND kcu.column_name = c.column_name
			) AS is_primary
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema()
		  AND c.table_name = $1
		ORDER BY c.ordinal_position
	`

	rows, err := q.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := &domain.IntrospectedTable{Name: tableName}
	for rows.Next() {
		var col domain.IntrospectedColumn
		var isNullable string
		if err := rows.Scan(&col.Name, &col.Type, &isNullable, &col.OrdinalPosition, &col.IsPrimaryKey); err != nil {
			return nil, err
		}
		col.IsNullable = isNullable == "YES"
		table.Columns = append(table.Columns, col)
	}
	return table, rows.Err()
}

// GetDatabaseVersion returns the server version, e.g. "16.1 (Debian 16.1-1)".
func (i *Introspector) GetDatabaseVersion(ctx context.Context, q domain.Querier) (string, error) {
	var version string
	err := q.QueryRowContext(ctx, "SHOW server_version").Scan(&version)
	return version, err
}

// ReservedPrefixes returns the prefixes of PostgreSQL system relations.
func (i *Introspector) ReservedPrefixes() []string {
	return []string{"pg_", "sql_"}
}

// MinimumVersion returns the oldest supported server version.
func (i *Introspector) MinimumVersion() string {
	return "9.4"
}

var _ domain.Introspector = (*Introspector)(nil)
