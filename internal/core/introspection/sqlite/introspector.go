// Package sqlite implements SQLite schema reflection.
package sqlite

import (
	"context"
	"fmt"

	"github.com/satishbabariya/querygate/internal/core/introspection/domain"
)

// Introspector implements domain.Introspector for SQLite.
type Introspector struct{}

// NewIntrospector creates a new SQLite introspector.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

// IntrospectDatabase introspects every table of the main database.
func (i *Introspector) IntrospectDatabase(ctx context.Context, q domain.Querier) (*domain.IntrospectedDatabase, error) {
	names, err := i.tableNames(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	result := &domain.IntrospectedDatabase{Tables: make([]domain.IntrospectedTable, 0, len(names))}
	for _, name := range names {
		table, err := i.IntrospectTable(ctx, q, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		result.Tables = append(result.Tables, *table)
	}
	return result, nil
}

// tableNames is collected before any column query so the rows cursor is
// closed first; a single *sql.Conn cannot interleave two result sets.
func (i *Introspector) tableNames(ctx context.Context, q domain.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
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

// IntrospectTable introspects a single table with pragma_table_info. The
// table name is bound, never spliced into the statement.
func (i *Introspector) IntrospectTable(ctx context.Context, q domain.Querier, tableName string) (*domain.IntrospectedTable, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := &domain.IntrospectedTable{Name: tableName}
	for rows.Next() {
		var (
			cid     int
			col     domain.IntrospectedColumn
			notNull int
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, err
		}
		col.IsNullable = notNull == 0
		col.IsPrimaryKey = pk > 0
		col.OrdinalPosition = cid + 1
		table.Columns = append(table.Columns, col)
	}
	return table, rows.Err()
}

// GetDatabaseVersion returns the SQLite library version.
func (i *Introspector) GetDatabaseVersion(ctx context.Context, q domain.Querier) (string, error) {
	var version string
	err := q.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version)
	return version, err
}

// ReservedPrefixes returns the prefix SQLite reserves for internal tables.
func (i *Introspector) ReservedPrefixes() []string {
	return []string{"sqlite_"}
}

// MinimumVersion is the first release with table-valued pragma functions.
func (i *Introspector) MinimumVersion() string {
	return "3.16.0"
}

var _ domain.Introspector = (*Introspector)(nil)
