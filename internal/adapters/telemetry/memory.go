package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultBuckets are the latency histogram bounds in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// MemoryTelemetry keeps counters and a latency histogram in memory.
type MemoryTelemetry struct {
	mu sync.RWMutex

	queries   map[string]map[string]int64
	errors    map[string]int64
	refreshes int64
	tables    int
	lastAt    time.Time

	buckets []float64
	counts  []int64
	sum     float64
	count   int64
}

// NewMemoryTelemetry creates an in-memory collector.
func NewMemoryTelemetry(config *Config) *MemoryTelemetry {
	buckets := DefaultBuckets
	if config != nil && len(config.Buckets) > 0 {
		buckets = append([]float64(nil), config.Buckets...)
		sort.Float64s(buckets)
	}
	return &MemoryTelemetry{
		queries: make(map[string]map[string]int64),
		errors:  make(map[string]int64),
		buckets: buckets,
		counts:  make([]int64, len(buckets)+1),
	}
}

// RecordQuery records a query execution.
func (m *MemoryTelemetry) RecordQuery(ctx context.Context, info QueryInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome := "success"
	if !info.Success {
		outcome = "error"
	}
	byOutcome, ok := m.queries[info.Table]
	if !ok {
		byOutcome = make(map[string]int64)
		m.queries[info.Table] = byOutcome
	}
	byOutcome[outcome]++

	seconds := info.Duration.Seconds()
	m.sum += seconds
	m.count++
	i := sort.SearchFloat64s(m.buckets, seconds)
	for ; i < len(m.counts); i++ {
		m.counts[i]++
	}
}

// RecordError records an error.
func (m *MemoryTelemetry) RecordError(ctx context.Context, info ErrorInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kind := info.Kind
	if kind == "" {
		kind = "internal"
	}
	m.errors[kind]++
}

// RecordRefresh records a catalog refresh.
func (m *MemoryTelemetry) RecordRefresh(ctx context.Context, info RefreshInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshes++
	m.tables = info.Tables
	m.lastAt = time.Now()
}

// Snapshot returns a deep copy of the collected metrics.
func (m *MemoryTelemetry) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Queries:       make(map[string]map[string]int64, len(m.queries)),
		Errors:        make(map[string]int64, len(m.errors)),
		Refreshes:     m.refreshes,
		CatalogTables: m.tables,
		LastRefresh:   m.lastAt,
		Latency: Histogram{
			Buckets: append([]float64(nil), m.buckets...),
			Counts:  append([]int64(nil), m.counts...),
			Sum:     m.sum,
			Count:   m.count,
		},
	}
	for table, byOutcome := range m.queries {
		cp := make(map[string]int64, len(byOutcome))
		for k, v := range byOutcome {
			cp[k] = v
		}
		s.Queries[table] = cp
	}
	for k, v := range m.errors {
		s.Errors[k] = v
	}
	return s
}

// Flush is a no-op; metrics are recorded synchronously.
func (m *MemoryTelemetry) Flush(ctx context.Context) error {
	return nil
}

// Close closes the telemetry adapter.
func (m *MemoryTelemetry) Close(ctx context.Context) error {
	return nil
}

var _ Telemetry = (*MemoryTelemetry)(nil)
