// Package catalog caches the table and column metadata reflected from the
// backend. Readers see an immutable snapshot; Refresh builds a new one and
// swaps it in atomically.
package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	idomain "github.com/satishbabariya/querygate/internal/core/introspection/domain"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
)

// Source supplies raw schema metadata.
type Source interface {
	ReflectSchema(ctx context.Context) (*idomain.IntrospectedDatabase, error)
	ReservedPrefixes() []string
}

// RefreshFunc is called after every successful refresh with the new table count.
type RefreshFunc func(tables int, took time.Duration)

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// OnRefresh registers a hook run after each successful refresh.
func OnRefresh(fn RefreshFunc) Option {
	return func(c *Catalog) {
		c.hooks = append(c.hooks, fn)
	}
}

type snapshot struct {
	names   []string
	columns map[string][]domain.ColumnDescriptor
	builtAt time.Time
}

// Catalog is the identifier allow-list consulted before any SQL is rendered.
type Catalog struct {
	source   Source
	prefixes []string
	logger   *slog.Logger
	hooks    []RefreshFunc

	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serializes Refresh
}

// New creates a catalog. The first snapshot is built by Refresh or lazily on
// first use.
func New(source Source, opts ...Option) *Catalog {
	c := &Catalog{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, p := range source.ReservedPrefixes() {
		if p != "" {
			c.prefixes = append(c.prefixes, strings.ToLower(p))
		}
	}
	return c
}

// Refresh reflects the backend and replaces the snapshot. Concurrent calls
// are serialized; a failed refresh leaves the previous snapshot in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Catalog) refreshLocked(ctx context.Context) error {
	start := time.Now()

	db, err := c.source.ReflectSchema(ctx)
	if err != nil {
		c.logger.Error("catalog refresh failed", "error", err)
		return err
	}
	c.logger.Debug("schema reflected", "tables", db.TableNames())

	snap := &snapshot{
		columns: make(map[string][]domain.ColumnDescriptor, len(db.Tables)),
		builtAt: time.Now(),
	}
	for _, table := range db.Tables {
		if c.IsReserved(table.Name) {
			continue
		}
		cols := make([]domain.ColumnDescriptor, len(table.Columns))
		for i, col := range table.Columns {
			cols[i] = domain.ColumnDescriptor{
				Name:         col.Name,
				DeclaredType: col.Type,
				Nullable:     col.IsNullable,
				PrimaryKey:   col.IsPrimaryKey,
			}
		}
		if _, dup := snap.columns[table.Name]; !dup {
			snap.names = append(snap.names, table.Name)
		}
		snap.columns[table.Name] = cols
	}
	sort.Strings(snap.names)

	c.current.Store(snap)

	took := time.Since(start)
	c.logger.Info("catalog refreshed", "tables", len(snap.names), "duration", took)
	for _, hook := range c.hooks {
		hook(len(snap.names), took)
	}
	return nil
}

// load returns the current snapshot, building it on first use.
func (c *Catalog) load(ctx context.Context) (*snapshot, error) {
	if snap := c.current.Load(); snap != nil {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if snap := c.current.Load(); snap != nil {
		return snap, nil
	}
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.current.Load(), nil
}

// ListTables returns the visible table names in lexicographic order.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(snap.names))
	copy(out, snap.names)
	return out, nil
}

// Describe returns the columns of table in declared order. The name must
// match exactly; reserved and absent tables both fail with
// *domain.UnknownTableError.
func (c *Catalog) Describe(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	if c.IsReserved(table) {
		return nil, &domain.UnknownTableError{Table: table, Reserved: true}
	}
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	cols, ok := snap.columns[table]
	if !ok {
		return nil, &domain.UnknownTableError{Table: table}
	}
	out := make([]domain.ColumnDescriptor, len(cols))
	copy(out, cols)
	return out, nil
}

// IsReserved reports whether name carries one of the backend's internal
// table prefixes. Matching ignores case.
func (c *Catalog) IsReserved(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range c.prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// BuiltAt returns when the current snapshot was built, or the zero time.
func (c *Catalog) BuiltAt() time.Time {
	if snap := c.current.Load(); snap != nil {
		return snap.builtAt
	}
	return time.Time{}
}
