// Package telemetry records gateway query, error and catalog metrics.
package telemetry

import (
	"context"
	"time"
)

// Telemetry defines the telemetry adapter interface.
type Telemetry interface {
	// RecordQuery records a runQuery call.
	RecordQuery(ctx context.Context, info QueryInfo)

	// RecordError records an error returned to a caller.
	RecordError(ctx context.Context, info ErrorInfo)

	// RecordRefresh records a catalog refresh.
	RecordRefresh(ctx context.Context, info RefreshInfo)

	// Snapshot returns the collected metrics.
	Snapshot() Snapshot

	// Flush flushes any buffered telemetry data.
	Flush(ctx context.Context) error

	// Close closes the telemetry adapter.
	Close(ctx context.Context) error
}

// QueryInfo contains information about a query.
type QueryInfo struct {
	// Table is the table being queried.
	Table string

	// Duration is how long validation, compilation and execution took.
	Duration time.Duration

	// Success indicates if the query succeeded.
	Success bool

	// Rows is the number of rows returned.
	Rows int
}

// ErrorInfo contains information about an error.
type ErrorInfo struct {
	Error error

	// Kind is the error class reported to clients, e.g. "unknown_table".
	Kind string

	// Operation is the core call that failed: list_tables, table_info or run_query.
	Operation string

	Table string
}

// RefreshInfo contains information about a catalog refresh.
type RefreshInfo struct {
	Tables   int
	Duration time.Duration
}

// Snapshot is a point-in-time copy of collected metrics.
type Snapshot struct {
	Queries       map[string]map[string]int64 `json:"queries"` // table -> outcome -> count
	Errors        map[string]int64            `json:"errors"`  // kind -> count
	Refreshes     int64                       `json:"refreshes"`
	CatalogTables int                         `json:"catalog_tables"`
	LastRefresh   time.Time                   `json:"last_refresh,omitempty"`
	Latency       Histogram                   `json:"latency_seconds"`
}

// Histogram is a cumulative bucketed distribution.
type Histogram struct {
	Buckets []float64 `json:"buckets"`
	Counts  []int64   `json:"counts"` // Counts[i] observations <= Buckets[i]; last entry is +Inf
	Sum     float64   `json:"sum"`
	Count   int64     `json:"count"`
}

// Config holds telemetry configuration.
type Config struct {
	// Type is the telemetry type (noop, memory).
	Type string

	// Buckets overrides the latency histogram bounds in seconds.
	Buckets []float64
}
