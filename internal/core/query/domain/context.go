package domain

import (
	"context"
	"time"
)

// SQLDialect represents a SQL dialect.
type SQLDialect string

const (
	// PostgreSQL dialect.
	PostgreSQL SQLDialect = "postgres"
	// MySQL dialect.
	MySQL SQLDialect = "mysql"
	// MariaDB dialect.
	MariaDB SQLDialect = "mariadb"
	// SQLite dialect.
	SQLite SQLDialect = "sqlite"
	// DuckDB dialect.
	DuckDB SQLDialect = "duckdb"
)

// DefaultMaxRows is the row ceiling used when settings provide none.
const DefaultMaxRows = 1000

// ExecutionContext is the per-call configuration of one execution.
type ExecutionContext struct {
	DataSource         string
	Dialect            SQLDialect
	MaxRows            int
	AllowSubquery      bool
	IsNative           bool
	Pluck              bool
	IncludeColumns     bool
	ReplaceQueryTables bool
	// UnescapePercent turns %% into % in native SQL before execution.
	UnescapePercent bool
	// ServerVersion is the backend version string, used for CTE support checks.
	ServerVersion string
}

// ExecOptions shapes a single ExecuteQuery call.
type ExecOptions struct {
	Pluck              bool
	IncludeColumns     bool
	IsNative           bool
	ReplaceQueryTables bool
}

// ExecutionLogEntry is the audit record of one executed statement.
type ExecutionLogEntry struct {
	ID         string
	Statement  string
	DataSource string
	Elapsed    time.Duration
	Timestamp  time.Time
	Success    bool
	Error      string
	RowCount   int
}

// ElapsedMillis returns the elapsed time in milliseconds.
func (e ExecutionLogEntry) ElapsedMillis() float64 {
	return float64(e.Elapsed.Microseconds()) / 1000
}

// Settings is the configuration collaborator. Values are read on every
// execution.
type Settings interface {
	AllowSubquery() bool
	QueryResultLimit() int
}

// ExecutionLogSink receives execution log entries.
type ExecutionLogSink interface {
	Append(ctx context.Context, entry ExecutionLogEntry) error
}

// QueryCompiler turns a logical query into SQL text.
type QueryCompiler interface {
	Build(query *LogicalQuery, dialect SQLDialect) (string, error)
}

// StoredQueryResolver looks up the SQL of a stored query by name.
type StoredQueryResolver interface {
	// ResolveStoredQuery returns the SQL of the stored query called name that
	// belongs to dataSource. found is false when no such query exists.
	ResolveStoredQuery(ctx context.Context, dataSource, name string) (sql string, found bool, err error)
}

// StaticSettings is a fixed Settings value.
type StaticSettings struct {
	Subquery bool
	Limit    int
}

// AllowSubquery implements Settings.
func (s StaticSettings) AllowSubquery() bool { return s.Subquery }

// QueryResultLimit implements Settings.
func (s StaticSettings) QueryResultLimit() int {
	if s.Limit <= 0 {
		return DefaultMaxRows
	}
	return s.Limit
}
