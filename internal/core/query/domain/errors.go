package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below matches exactly one of these through errors.Is.
var (
	// ErrCompilation is returned when a logical query cannot be compiled.
	ErrCompilation = errors.New("compilation error")

	// ErrCycle is returned when stored queries reference each other in a loop.
	ErrCycle = errors.New("cyclic query reference")

	// ErrReadOnly is returned for statements that are not SELECT or WITH.
	ErrReadOnly = errors.New("read-only violation")

	// ErrConnection is returned when no connection could be acquired.
	ErrConnection = errors.New("connection error")

	// ErrQueryExecution is returned when the driver fails a statement.
	ErrQueryExecution = errors.New("query execution error")

	// ErrNotSupported is returned when a backend lacks a capability.
	ErrNotSupported = errors.New("not supported")
)

// CompilationError represents a malformed logical query.
type CompilationError struct {
	Query  string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	msg := e.Reason
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Query != "" {
		return fmt.Sprintf("failed to compile query %s: %s", e.Query, msg)
	}
	return fmt.Sprintf("failed to compile query: %s", msg)
}

// Unwrap returns the underlying error.
func (e *CompilationError) Unwrap() error { return e.Cause }

// Is matches ErrCompilation.
func (e *CompilationError) Is(target error) bool { return target == ErrCompilation }

// Compilationf builds a CompilationError with a formatted reason.
func Compilationf(format string, args ...any) *CompilationError {
	return &CompilationError{Reason: fmt.Sprintf(format, args...)}
}

// CycleError represents a stored-query self-reference chain.
type CycleError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic query reference: %s", strings.Join(e.Chain, " -> "))
}

// Is matches ErrCycle.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// ReadOnlyViolation represents a statement that could mutate the database.
type ReadOnlyViolation struct {
	Statement string
	Reason    string
}

// Error implements the error interface.
func (e *ReadOnlyViolation) Error() string {
	if e.Reason != "" {
		return "only SELECT and WITH queries are allowed: " + e.Reason
	}
	return "only SELECT and WITH queries are allowed"
}

// Is matches ErrReadOnly.
func (e *ReadOnlyViolation) Is(target error) bool { return target == ErrReadOnly }

// ConnectionError represents a pool or engine failure.
type ConnectionError struct {
	DataSource string
	Cause      error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("error connecting to data source %s: %v", e.DataSource, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error { return e.Cause }

// Is matches ErrConnection.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// QueryExecutionError carries the driver's failure for a statement.
type QueryExecutionError struct {
	DataSource string
	Statement  string
	Cause      error
}

// Error implements the error interface.
func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query failed on %s: %v", e.DataSource, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryExecutionError) Unwrap() error { return e.Cause }

// Is matches ErrQueryExecution.
func (e *QueryExecutionError) Is(target error) bool { return target == ErrQueryExecution }

// NotSupportedError is returned by backends that lack a capability.
type NotSupportedError struct {
	Backend    string
	Capability string
}

// Error implements the error interface.
func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by %s data sources", e.Capability, e.Backend)
}

// Is matches ErrNotSupported.
func (e *NotSupportedError) Is(target error) bool { return target == ErrNotSupported }

// KindOf names the error kind of err, or "error" for untyped errors.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrCompilation):
		return "CompilationError"
	case errors.Is(err, ErrCycle):
		return "CycleError"
	case errors.Is(err, ErrReadOnly):
		return "ReadOnlyViolation"
	case errors.Is(err, ErrConnection):
		return "ConnectionError"
	case errors.Is(err, ErrQueryExecution):
		return "QueryExecutionError"
	case errors.Is(err, ErrNotSupported):
		return "NotSupported"
	default:
		return "error"
	}
}
