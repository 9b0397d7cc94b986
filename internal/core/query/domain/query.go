// Package domain contains the data model shared by the catalog, validator, compiler and executor.
package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SQLDialect represents the SQL dialect a statement is rendered for.
type SQLDialect string

const (
	// SQLite dialect.
	SQLite SQLDialect = "sqlite"
	// PostgreSQL dialect.
	PostgreSQL SQLDialect = "postgres"
	// MySQL dialect.
	MySQL SQLDialect = "mysql"
	// DuckDB dialect.
	DuckDB SQLDialect = "duckdb"
)

// ColumnDescriptor describes one reflected column of a table.
type ColumnDescriptor struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declared_type"`
	Nullable     bool   `json:"nullable"`
	PrimaryKey   bool   `json:"primary_key"`
}

// QueryRequest is the declarative read request accepted by the gateway.
// A nil or empty Fields selects every column in declared order; a nil or
// empty Filters selects every row.
type QueryRequest struct {
	Table   string         `json:"table"`
	Fields  []string       `json:"fields,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

// Predicate is a single column = value comparison.
type Predicate struct {
	Column string
	Value  Value
}

// QueryPlan is a validated request. It only ever holds identifiers that were
// checked against the catalog.
type QueryPlan struct {
	Table      string
	Projection []ColumnDescriptor
	Predicates []Predicate // sorted by column name
}

// Columns returns the projected column names in order.
func (p *QueryPlan) Columns() []string {
	names := make([]string, len(p.Projection))
	for i, col := range p.Projection {
		names[i] = col.Name
	}
	return names
}

// Bind pairs a placeholder with the predicate column it binds.
type Bind struct {
	Name   string
	Column string
}

// Statement is a rendered, parameterized SELECT.
type Statement struct {
	SQL     string
	Args    []any
	Dialect SQLDialect
}

// QueryResult is the outcome of runQuery.
type QueryResult struct {
	Query string `json:"query" msgpack:"query"`
	Rows  []Row  `json:"result" msgpack:"result"`
}

// TableInfo exposes one catalog entry: column name to declared type, in
// declared order.
type TableInfo struct {
	Table   string
	Columns []ColumnDescriptor
}

// MarshalJSON renders {"<table>": {"<column>": "<type>", ...}} preserving column order.
func (t TableInfo) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	name, err := json.Marshal(t.Table)
	if err != nil {
		return nil, err
	}
	buf.WriteByte('{')
	buf.Write(name)
	buf.WriteString(":{")
	for i, col := range t.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		typ, err := json.Marshal(col.DeclaredType)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(typ)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// String returns a short human readable form, used in logs.
func (p *QueryPlan) String() string {
	var sb strings.Builder
	sb.WriteString(p.Table)
	sb.WriteString("(")
	sb.WriteString(strings.Join(p.Columns(), ","))
	sb.WriteString(")")
	for i, pred := range p.Predicates {
		if i == 0 {
			sb.WriteString(" where ")
		} else {
			sb.WriteString(" and ")
		}
		sb.WriteString(pred.Column)
	}
	return sb.String()
}
