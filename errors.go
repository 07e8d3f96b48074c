package sqlinspect

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedDialect is returned when a connection URL has an unknown scheme.
	ErrUnsupportedDialect = errors.New("unsupported dialect")
	// ErrConnectionFailed is returned when the pool cannot be opened or pinged.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrQueryFailed is returned for any SQL execution or introspection failure.
	ErrQueryFailed = errors.New("query failed")
	// ErrNotFound is returned when a named table does not exist.
	ErrNotFound = errors.New("not found")
	// ErrReadOnly is returned when a statement is refused on a read-only connection.
	ErrReadOnly = errors.New("read-only connection")
)

// UnsupportedDialectError carries the offending URL scheme.
type UnsupportedDialectError struct {
	Scheme string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported database scheme: %q", e.Scheme)
}

func (e *UnsupportedDialectError) Is(target error) bool {
	return target == ErrUnsupportedDialect
}

// ConnectionError wraps a failure to open or reach the database.
type ConnectionError struct {
	Dialect Dialect
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Dialect, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// QueryError wraps a driver error. Error returns the driver text verbatim so
// callers can surface it as-is.
type QueryError struct {
	Query string
	Cause error
}

func (e *QueryError) Error() string { return e.Cause.Error() }

func (e *QueryError) Unwrap() error { return e.Cause }

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// TableNotFoundError is returned when introspection finds no such table.
// Cause is set when the driver itself reported the missing table.
type TableNotFoundError struct {
	Table string
	Cause error
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found", e.Table)
}

func (e *TableNotFoundError) Unwrap() error { return e.Cause }

func (e *TableNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ReadOnlyError explains why a statement was refused on a read-only connection.
type ReadOnlyError struct {
	Reason string
}

func (e *ReadOnlyError) Error() string {
	return "Write operations are not allowed in read-only mode: " + e.Reason
}

func (e *ReadOnlyError) Is(target error) bool {
	return target == ErrReadOnly
}

// ErrorMessage renders err the way it is shown to users.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrQueryFailed) || errors.Is(err, ErrNotFound) {
		return "SQL Error: " + err.Error()
	}
	return err.Error()
}
