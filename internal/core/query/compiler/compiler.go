// Package compiler renders validated query plans into parameterized SELECT
// statements.
package compiler

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/satishbabariya/querygate/internal/core/query/cache"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
)

// SQLCompiler renders plans for one dialect. It is safe for concurrent use.
type SQLCompiler struct {
	dialect   domain.SQLDialect
	templates *cache.LRUCache[*template]
}

// template is the value-independent part of a compiled statement.
type template struct {
	sql   string
	binds []domain.Bind // one per non-null predicate, in predicate order
}

// Option configures a SQLCompiler.
type Option func(*SQLCompiler)

// WithTemplateCache enables reuse of rendered SQL for plans of the same
// shape. A size of zero or less disables caching.
func WithTemplateCache(size int) Option {
	return func(c *SQLCompiler) {
		if size > 0 {
			c.templates = cache.NewLRUCache[*template](size, 0)
		}
	}
}

// NewSQLCompiler creates a new SQL compiler.
func NewSQLCompiler(dialect domain.SQLDialect, opts ...Option) *SQLCompiler {
	c := &SQLCompiler{dialect: dialect}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect returns the dialect statements are rendered for.
func (c *SQLCompiler) Dialect() domain.SQLDialect {
	return c.dialect
}

// Compile renders plan. Identifiers come from the plan, which only holds
// catalog-checked names; every non-null value is bound through a placeholder.
// Predicates are rendered in column-name order whatever order the plan holds.
func (c *SQLCompiler) Compile(ctx context.Context, plan *domain.QueryPlan) (*domain.Statement, error) {
	if plan == nil || plan.Table == "" {
		return nil, fmt.Errorf("compile: empty plan")
	}
	if len(plan.Projection) == 0 {
		return nil, fmt.Errorf("compile: table %q has no projected columns", plan.Table)
	}
	if !sort.SliceIsSorted(plan.Predicates, func(i, j int) bool {
		return plan.Predicates[i].Column < plan.Predicates[j].Column
	}) {
		sorted := *plan
		sorted.Predicates = append([]domain.Predicate(nil), plan.Predicates...)
		sort.SliceStable(sorted.Predicates, func(i, j int) bool {
			return sorted.Predicates[i].Column < sorted.Predicates[j].Column
		})
		plan = &sorted
	}

	var tmpl *template
	key := ""
	if c.templates != nil {
		key = shapeKey(plan)
		if cached, ok := c.templates.Get(key); ok {
			tmpl = cached
		}
	}
	if tmpl == nil {
		tmpl = c.render(plan)
		if c.templates != nil {
			c.templates.Set(key, tmpl, 0)
		}
	}

	stmt := &domain.Statement{
		SQL:     tmpl.sql,
		Args:    make([]any, 0, len(tmpl.binds)),
		Dialect: c.dialect,
	}
	i := 0
	for _, pred := range plan.Predicates {
		if pred.Value.IsNull() {
			continue
		}
		bind := tmpl.binds[i]
		i++
		if c.dialect == domain.SQLite {
			stmt.Args = append(stmt.Args, sql.Named(bind.Name, pred.Value.Interface()))
		} else {
			stmt.Args = append(stmt.Args, pred.Value.Interface())
		}
	}
	return stmt, nil
}

// ClearCache drops all cached templates. Called after a catalog refresh.
func (c *SQLCompiler) ClearCache() {
	if c.templates != nil {
		c.templates.Clear()
	}
}

// CacheStats returns template cache statistics; zero when caching is off.
func (c *SQLCompiler) CacheStats() cache.Stats {
	if c.templates == nil {
		return cache.Stats{}
	}
	return c.templates.GetStats()
}

func (c *SQLCompiler) render(plan *domain.QueryPlan) *template {
	var sb strings.Builder
	table := c.quote(plan.Table)

	sb.WriteString("SELECT ")
	for i, col := range plan.Projection {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(table)
		sb.WriteByte('.')
		sb.WriteString(c.quote(col.Name))
	}

	sb.WriteString(" \nFROM ")
	sb.WriteString(table)

	tmpl := &template{}
	if len(plan.Predicates) > 0 {
		sb.WriteString(" \nWHERE ")
		used := make(map[string]int, len(plan.Predicates))
		for i, pred := range plan.Predicates {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(table)
			sb.WriteByte('.')
			sb.WriteString(c.quote(pred.Column))

			if pred.Value.IsNull() {
				sb.WriteString(" IS NULL")
				continue
			}

			name := bindName(pred.Column, used)
			tmpl.binds = append(tmpl.binds, domain.Bind{Name: name, Column: pred.Column})
			sb.WriteString(" = ")
			sb.WriteString(c.placeholder(name, len(tmpl.binds)))
		}
	}

	tmpl.sql = sb.String()
	return tmpl
}

// quote quotes an identifier, doubling any embedded quote character.
func (c *SQLCompiler) quote(ident string) string {
	q := `"`
	if c.dialect == domain.MySQL {
		q = "`"
	}
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// placeholder returns the parameter marker for the n-th bound value.
func (c *SQLCompiler) placeholder(name string, n int) string {
	switch c.dialect {
	case domain.SQLite:
		return ":" + name
	case domain.PostgreSQL:
		return "$" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// bindName derives a parameter name from a column: runes outside
// [A-Za-z0-9_] become '_', a name not starting with a letter gets a "p_"
// prefix, and a per-name counter starting at 1 is appended.
func bindName(column string, used map[string]int) string {
	var sb strings.Builder
	for _, r := range column {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	base := sb.String()
	if base == "" || !isASCIILetter(base[0]) {
		base = "p_" + base
	}
	used[base]++
	return base + "_" + strconv.Itoa(used[base])
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// shapeKey identifies everything that influences rendered SQL: the table,
// the projection in order, and each predicate column with its null-ness.
// Parts are length-prefixed so no identifier can forge another key.
func shapeKey(plan *domain.QueryPlan) string {
	var sb strings.Builder
	part := func(s string) {
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
	}
	part(plan.Table)
	sb.WriteByte('|')
	for _, col := range plan.Projection {
		part(col.Name)
	}
	sb.WriteByte('|')
	for _, pred := range plan.Predicates {
		part(pred.Column)
		if pred.Value.IsNull() {
			sb.WriteByte('!')
		}
	}
	return sb.String()
}
