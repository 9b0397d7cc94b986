// Package domain contains the models and interfaces for schema reflection.
package domain

// IntrospectedDatabase is the raw table and column metadata of one schema.
type IntrospectedDatabase struct {
	Tables []IntrospectedTable
}

// IntrospectedTable represents a database table.
type IntrospectedTable struct {
	Name    string
	Schema  string // e.g. "public" in PostgreSQL, empty for SQLite
	Columns []IntrospectedColumn
}

// IntrospectedColumn represents a table column.
type IntrospectedColumn struct {
	Name            string
	Type            string // declared type as reported by the backend, e.g. "NVARCHAR(160)"
	IsNullable      bool
	IsPrimaryKey    bool
	OrdinalPosition int
}

// TableNames returns the names of all tables in reflection order.
func (d *IntrospectedDatabase) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i := range d.Tables {
		names[i] = d.Tables[i].Name
	}
	return names
}
