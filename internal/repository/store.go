// Package repository persists execution logs, stored queries and the table
// catalog in a local SQLite database.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/satishbabariya/insights-go/internal/debug"
)

const schema = `
CREATE TABLE IF NOT EXISTS execution_logs (
	id          TEXT PRIMARY KEY,
	statement   TEXT NOT NULL,
	data_source TEXT NOT NULL,
	elapsed_ms  REAL NOT NULL,
	executed_at TEXT NOT NULL,
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_execution_logs_source ON execution_logs (data_source, executed_at);

CREATE TABLE IF NOT EXISTS stored_queries (
	name              TEXT PRIMARY KEY,
	data_source       TEXT NOT NULL,
	definition        TEXT NOT NULL,
	compiled_sql      TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	execution_time_ms REAL NOT NULL DEFAULT 0,
	last_execution    TEXT NOT NULL DEFAULT '',
	updated_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_tables (
	data_source    TEXT NOT NULL,
	name           TEXT NOT NULL,
	label          TEXT NOT NULL,
	is_query_based INTEGER NOT NULL DEFAULT 0,
	hidden         INTEGER NOT NULL DEFAULT 0,
	columns        TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (data_source, name)
);

CREATE TABLE IF NOT EXISTS catalog_table_links (
	data_source   TEXT NOT NULL,
	primary_table TEXT NOT NULL,
	primary_key   TEXT NOT NULL,
	foreign_table TEXT NOT NULL,
	foreign_key   TEXT NOT NULL,
	PRIMARY KEY (data_source, primary_table, primary_key, foreign_table, foreign_key)
);
`

// Store is the metadata database.
type Store struct {
	db *sql.DB
}

// Open opens (creating when needed) the metadata database at path. The path
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create metadata directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}
	// One writer keeps appends serialized and the in-memory database shared.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate metadata database: %w", err)
	}

	debug.Debug("Opened metadata store", "path", path)
	return &Store{db: db}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Logs returns the execution log repository.
func (s *Store) Logs() *ExecutionLogRepository { return &ExecutionLogRepository{db: s.db} }

// Queries returns the stored query repository.
func (s *Store) Queries() *QueryRepository { return &QueryRepository{db: s.db} }

// Catalog returns the table catalog repository.
func (s *Store) Catalog() *CatalogRepository { return &CatalogRepository{db: s.db} }

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if strings.TrimSpace(s) == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
