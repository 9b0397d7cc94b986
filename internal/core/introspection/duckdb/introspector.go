// Package duckdb implements DuckDB schema reflection.
package duckdb

import (
	"context"
	"fmt"

	"github.com/satishbabariya/querygate/internal/core/introspection/domain"
)

// Introspector implements domain.Introspector for DuckDB.
type Introspector struct{}

// NewIntrospector creates a new DuckDB introspector.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

// IntrospectDatabase introspects every base table of the current schema.
func (i *Introspector) IntrospectDatabase(ctx context.Context, q domain.Querier) (*domain.IntrospectedDatabase, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	type ref struct{ schema, name string }
	var refs []ref
	for rows.Next() {
		var r ref
		if err := rows.Scan(&r.schema, &r.name); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &domain.IntrospectedDatabase{Tables: make([]domain.IntrospectedTable, 0, len(refs))}
	for _, r := range refs {
		table, err := i.IntrospectTable(ctx, q, r.name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", r.name, err)
		}
		table.Schema = r.schema
		result.Tables = append(result.Tables, *table)
	}
	return result, nil
}

// IntrospectTable introspects the columns of one table.
func (i *Introspector) IntrospectTable(ctx context.Context, q domain.Querier, tableName string) (*domain.IntrospectedTable, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.ordinal_position,
			EXISTS (
				SELECT 1
				FROM duckdb_constraints() dc
				WHERE dc.constraint_type = 'PRIMARY KEY'
				  AND dc.schema_name = c.table_schema
				  AND dc.table_name = c.table_name
				  AND list_contains(dc.constraint_column_names, c.column_name)
			) AS is_primary
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema()
		  AND c.table_name = ?
		ORDER BY c.ordinal_position
	`, tableName)
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

// GetDatabaseVersion returns the DuckDB library version, e.g. "v1.1.3".
func (i *Introspector) GetDatabaseVersion(ctx context.Context, q domain.Querier) (string, error) {
	var version string
	err := q.QueryRowContext(ctx, "SELECT version()").Scan(&version)
	return version, err
}

// ReservedPrefixes returns the prefixes of DuckDB's compatibility catalogs.
func (i *Introspector) ReservedPrefixes() []string {
	return []string{"duckdb_", "sqlite_", "pg_"}
}

// MinimumVersion returns the oldest supported library version.
func (i *Introspector) MinimumVersion() string {
	return "1.0.0"
}

var _ domain.Introspector = (*Introspector)(nil)
