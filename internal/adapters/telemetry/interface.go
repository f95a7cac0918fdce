// Package telemetry provides telemetry adapter interfaces.
package telemetry

import (
	"context"
	"time"
)

// Telemetry defines the telemetry adapter interface.
type Telemetry interface {
	// RecordQuery records a query execution.
	RecordQuery(ctx context.Context, info QueryInfo)

	// RecordError records an error.
	RecordError(ctx context.Context, info ErrorInfo)

	// RecordConnection records a connection event.
	RecordConnection(ctx context.Context, info ConnectionInfo)

	// Flush flushes any buffered telemetry data.
	Flush(ctx context.Context) error

	// Close closes the telemetry adapter.
	Close(ctx context.Context) error
}

// QueryInfo contains information about a query execution.
type QueryInfo struct {
	// DataSource is the data source the statement ran on.
	DataSource string

	// Operation is the caller-level operation (run_query, execute, preview, ...).
	Operation string

	// Duration is how long the execution took.
	Duration time.Duration

	// Success indicates if the execution succeeded.
	Success bool

	// Rows is the number of rows fetched.
	Rows int
}

// ErrorInfo contains information about an error.
type ErrorInfo struct {
	// Error is the error that occurred.
	Error error

	// DataSource is the data source involved.
	DataSource string

	// Operation is the operation that failed.
	Operation string

	// Query is the SQL statement (if applicable).
	Query string
}

// ConnectionInfo contains information about a connection event.
type ConnectionInfo struct {
	// DataSource is the data source of the connection.
	DataSource string

	// Event is the event type (acquire, release, error).
	Event string

	// Duration is how long the operation took.
	Duration time.Duration

	// Success indicates if the operation succeeded.
	Success bool

	// ActiveConnections is the number of connections in use.
	ActiveConnections int
}

// Config holds telemetry configuration.
type Config struct {
	// Type is the telemetry type (noop, prometheus).
	Type string `mapstructure:"type" validate:"omitempty,oneof=noop prometheus"`

	// Namespace prefixes metric names.
	Namespace string `mapstructure:"namespace"`

	// MetricsFile is where Flush writes metrics in the text exposition format.
	MetricsFile string `mapstructure:"metrics_file"`
}
