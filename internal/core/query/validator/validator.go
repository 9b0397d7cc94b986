// Package validator turns a QueryRequest into a QueryPlan whose identifiers
// have all been checked against the catalog.
package validator

import (
	"context"
	"sort"

	"github.com/satishbabariya/querygate/internal/core/query/domain"
)

// Catalog is the subset of the schema catalog the validator needs.
type Catalog interface {
	Describe(ctx context.Context, table string) ([]domain.ColumnDescriptor, error)
}

// Validator checks requests against a catalog.
type Validator struct {
	catalog Catalog
}

// New creates a validator.
func New(catalog Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// Validate builds a plan for req. The first failing check wins: missing
// table, unknown table, then fields in request order, then filters in
// column-name order.
func (v *Validator) Validate(ctx context.Context, req domain.QueryRequest) (*domain.QueryPlan, error) {
	if req.Table == "" {
		return nil, &domain.MissingTableError{}
	}

	columns, err := v.catalog.Describe(ctx, req.Table)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]domain.ColumnDescriptor, len(columns))
	for _, col := range columns {
		byName[col.Name] = col
	}

	plan := &domain.QueryPlan{Table: req.Table}

	if len(req.Fields) == 0 {
		plan.Projection = columns
	} else {
		seen := make(map[string]struct{}, len(req.Fields))
		plan.Projection = make([]domain.ColumnDescriptor, 0, len(req.Fields))
		for _, field := range req.Fields {
			col, ok := byName[field]
			if !ok {
				return nil, &domain.UnknownColumnError{Table: req.Table, Column: field}
			}
			if _, dup := seen[field]; dup {
				return nil, &domain.DuplicateColumnError{Table: req.Table, Column: field}
			}
			seen[field] = struct{}{}
			plan.Projection = append(plan.Projection, col)
		}
	}

	if len(req.Filters) > 0 {
		keys := make([]string, 0, len(req.Filters))
		for k := range req.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		plan.Predicates = make([]domain.Predicate, 0, len(keys))
		for _, key := range keys {
			if _, ok := byName[key]; !ok {
				return nil, &domain.UnknownColumnError{Table: req.Table, Column: key}
			}
			val, err := domain.ValueOf(req.Filters[key])
			if err != nil {
				return nil, &domain.InvalidFilterValueError{Table: req.Table, Column: key, Cause: err}
			}
			plan.Predicates = append(plan.Predicates, domain.Predicate{Column: key, Value: val})
		}
	}

	return plan, nil
}
