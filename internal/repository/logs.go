package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// ExecutionLogRepository is the append-only execution log.
type ExecutionLogRepository struct {
	db *sql.DB
}

// LogFilter narrows a log listing.
type LogFilter struct {
	DataSource string
	FailedOnly bool
	Limit      int
}

// Append implements domain.ExecutionLogSink.
func (r *ExecutionLogRepository) Append(ctx context.Context, e domain.ExecutionLogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO execution_logs (id, statement, data_source, elapsed_ms, executed_at, success, error, row_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Statement, e.DataSource, e.ElapsedMillis(), formatTime(e.Timestamp), boolInt(e.Success), e.Error, e.RowCount)
	if err != nil {
		return fmt.Errorf("failed to append execution log: %w", err)
	}
	return nil
}

// List returns the most recent entries first.
func (r *ExecutionLogRepository) List(ctx context.Context, f LogFilter) ([]domain.ExecutionLogEntry, error) {
	var where []string
	var args []any
	if f.DataSource != "" {
		where = append(where, "data_source = ?")
		args = append(args, f.DataSource)
	}
	if f.FailedOnly {
		where = append(where, "success = 0")
	}

	query := `SELECT id, statement, data_source, elapsed_ms, executed_at, success, error, row_count FROM execution_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY executed_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ExecutionLogEntry
	for rows.Next() {
		var (
			e         domain.ExecutionLogEntry
			elapsedMs float64
			at        string
			success   int
		)
		if err := rows.Scan(&e.ID, &e.Statement, &e.DataSource, &elapsedMs, &at, &success, &e.Error, &e.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}
		e.Elapsed = time.Duration(elapsedMs * float64(time.Millisecond))
		e.Timestamp = parseTime(at)
		e.Success = success == 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of entries for dataSource, or all entries when
// dataSource is empty.
func (r *ExecutionLogRepository) Count(ctx context.Context, dataSource string) (int, error) {
	query, args := `SELECT COUNT(*) FROM execution_logs`, []any{}
	if dataSource != "" {
		query += ` WHERE data_source = ?`
		args = append(args, dataSource)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count execution logs: %w", err)
	}
	return n, nil
}

var _ domain.ExecutionLogSink = (*ExecutionLogRepository)(nil)
