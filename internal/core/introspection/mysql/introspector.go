// Package mysql implements MySQL schema reflection.
package mysql

import (
	"context"
	"fmt"

	"github.com/satishbabariya/querygate/internal/core/introspection/domain"
)

// Introspector implements domain.Introspector for MySQL. Reflection is
// scoped to DATABASE(), so system schemas never appear.
type Introspector struct{}

// NewIntrospector creates a new MySQL introspector.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

// IntrospectDatabase introspects every base table of the selected database.
func (i *Introspector) IntrospectDatabase(ctx context.Context, q domain.Querier) (*domain.IntrospectedDatabase, error) {
	var schema string
	if err := q.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&schema); err != nil {
		return nil, fmt.Errorf("failed to get current database: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
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

// IntrospectTable introspects the columns of one table. COLUMN_TYPE keeps
// length and precision, e.g. "varchar(160)".
func (i *Introspector) IntrospectTable(ctx context.Context, q domain.Querier, tableName string) (*domain.IntrospectedTable, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, ordinal_position, column_key = 'PRI'
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position
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

// GetDatabaseVersion returns the MySQL version.
func (i *Introspector) GetDatabaseVersion(ctx context.Context, q domain.Querier) (string, error) {
	var version string
	err := q.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	return version, err
}

// ReservedPrefixes is empty: internal tables live in other schemas.
func (i *Introspector) ReservedPrefixes() []string {
	return nil
}

// MinimumVersion returns the oldest supported server version.
func (i *Introspector) MinimumVersion() string {
	return "5.7.0"
}

var _ domain.Introspector = (*Introspector)(nil)
