package domain

import (
	"errors"
	"fmt"
)

// Error classes. Typed errors below match these through errors.Is.
var (
	// ErrMissingTable is returned when a request has no table.
	ErrMissingTable = errors.New("missing table")

	// ErrUnknownTable is returned when a table is not in the catalog.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned when a field or filter names a column the table does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrDuplicateColumn is returned when a projection names the same column twice.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrInvalidFilterValue is returned when a filter value is not a scalar.
	ErrInvalidFilterValue = errors.New("invalid filter value")

	// ErrBackendExecution is returned when the backend rejects a statement.
	ErrBackendExecution = errors.New("backend execution failed")

	// ErrBackendUnavailable is returned on connection or transport failure.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// MissingTableError is returned when QueryRequest.Table is empty.
type MissingTableError struct{}

func (e *MissingTableError) Error() string { return "table is required" }

// Is reports whether target is ErrMissingTable.
func (e *MissingTableError) Is(target error) bool { return target == ErrMissingTable }

// UnknownTableError is returned for tables absent from the catalog. Reserved
// is set when the name belongs to the backend's internal tables; both cases
// are reported to clients the same way.
type UnknownTableError struct {
	Table    string
	Reserved bool
}

func (e *UnknownTableError) Error() string {
	if e.Reserved {
		return fmt.Sprintf("unknown table %q (reserved system table)", e.Table)
	}
	return fmt.Sprintf("unknown table %q", e.Table)
}

// Is reports whether target is ErrUnknownTable.
func (e *UnknownTableError) Is(target error) bool { return target == ErrUnknownTable }

// UnknownColumnError is returned when a column is not declared on a table.
type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q on table %q", e.Column, e.Table)
}

// Is reports whether target is ErrUnknownColumn.
func (e *UnknownColumnError) Is(target error) bool { return target == ErrUnknownColumn }

// DuplicateColumnError is returned when fields repeats a column.
type DuplicateColumnError struct {
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("column %q of table %q is selected more than once", e.Column, e.Table)
}

// Is reports whether target is ErrDuplicateColumn.
func (e *DuplicateColumnError) Is(target error) bool { return target == ErrDuplicateColumn }

// InvalidFilterValueError is returned when a filter value is not a scalar.
type InvalidFilterValueError struct {
	Table  string
	Column string
	Cause  error
}

func (e *InvalidFilterValueError) Error() string {
	return fmt.Sprintf("invalid filter value for %q on table %q: %v", e.Column, e.Table, e.Cause)
}

// Unwrap returns the underlying error.
func (e *InvalidFilterValueError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrInvalidFilterValue.
func (e *InvalidFilterValueError) Is(target error) bool { return target == ErrInvalidFilterValue }

// BackendExecutionError wraps a statement the backend rejected.
type BackendExecutionError struct {
	Query string
	Cause error
}

func (e *BackendExecutionError) Error() string {
	return fmt.Sprintf("backend rejected query: %v", e.Cause)
}

// Unwrap returns the backend error.
func (e *BackendExecutionError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrBackendExecution.
func (e *BackendExecutionError) Is(target error) bool { return target == ErrBackendExecution }

// BackendUnavailableError wraps a connection or transport failure.
type BackendUnavailableError struct {
	Operation string
	Cause     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable during %s: %v", e.Operation, e.Cause)
}

// Unwrap returns the backend error.
func (e *BackendUnavailableError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrBackendUnavailable.
func (e *BackendUnavailableError) Is(target error) bool { return target == ErrBackendUnavailable }

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingTable) ||
		errors.Is(err, ErrUnknownTable) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrDuplicateColumn) ||
		errors.Is(err, ErrInvalidFilterValue)
}

// IsUnavailable reports whether err is a backend availability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
