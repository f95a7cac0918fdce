package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// QueryRepository stores named queries.
type QueryRepository struct {
	db *sql.DB
}

// Save inserts or updates q. A query whose definition changed goes back to
// pending execution.
func (r *QueryRepository) Save(ctx context.Context, q *domain.StoredQuery) error {
	if q.Name == "" {
		return fmt.Errorf("failed to save query: name is required")
	}
	def, err := json.Marshal(q.LogicalQuery)
	if err != nil {
		return fmt.Errorf("failed to encode query %s: %w", q.Name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current, status string
	err = tx.QueryRowContext(ctx, `SELECT definition, status FROM stored_queries WHERE name = ?`, q.Name).Scan(&current, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to load query %s: %w", q.Name, err)
	case current != string(def):
		q.Status = domain.StatusPending
	case q.Status == "":
		q.Status = domain.QueryStatus(status)
	}
	if q.Status == "" {
		q.Status = domain.StatusPending
	}
	q.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stored_queries (name, data_source, definition, compiled_sql, status, execution_time_ms, last_execution, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			data_source = excluded.data_source,
			definition = excluded.definition,
			compiled_sql = excluded.compiled_sql,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		q.Name, q.DataSource, string(def), q.CompiledSQL, string(q.Status),
		float64(q.ExecutionTime.Microseconds())/1000, formatTime(q.LastExecution), formatTime(q.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save query %s: %w", q.Name, err)
	}
	return tx.Commit()
}

// MarkExecuted records a successful run of the named query.
func (r *QueryRepository) MarkExecuted(ctx context.Context, name string, elapsed time.Duration, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stored_queries SET status = ?, execution_time_ms = ?, last_execution = ? WHERE name = ?`,
		string(domain.StatusSuccess), float64(elapsed.Microseconds())/1000, formatTime(at), name)
	if err != nil {
		return fmt.Errorf("failed to update query %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("query %s: %w", name, ErrNotFound)
	}
	return nil
}

// Get returns the named query.
func (r *QueryRepository) Get(ctx context.Context, name string) (*domain.StoredQuery, error) {
	row := r.db.QueryRowContext(ctx, selectQuery+` WHERE name = ?`, name)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", name, ErrNotFound)
	}
	return q, err
}

// List returns the queries of dataSource, or every query when it is empty.
func (r *QueryRepository) List(ctx context.Context, dataSource string) ([]domain.StoredQuery, error) {
	query, args := selectQuery, []any{}
	if dataSource != "" {
		query += ` WHERE data_source = ?`
		args = append(args, dataSource)
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredQuery
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// Delete removes the named query.
func (r *QueryRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM stored_queries WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete query %s: %w", name, err)
	}
	return nil
}

// ResolveStoredQuery implements domain.StoredQueryResolver. Native queries
// resolve to their own SQL, logical ones to the SQL they last compiled to.
func (r *QueryRepository) ResolveStoredQuery(ctx context.Context, dataSource, name string) (string, bool, error) {
	q, err := r.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if q.DataSource != dataSource {
		return "", false, nil
	}
	sql := q.CompiledSQL
	if sql == "" && q.IsNative {
		sql = q.SQL
	}
	return sql, sql != "", nil
}

const selectQuery = `SELECT definition, compiled_sql, status, execution_time_ms, last_execution, updated_at FROM stored_queries`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuery(s scanner) (*domain.StoredQuery, error) {
	var (
		def, lastExec, updated string
		status                 string
		elapsedMs              float64
		q                      domain.StoredQuery
	)
	if err := s.Scan(&def, &q.CompiledSQL, &status, &elapsedMs, &lastExec, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(def), &q.LogicalQuery); err != nil {
		return nil, fmt.Errorf("failed to decode query: %w", err)
	}
	q.Status = domain.QueryStatus(status)
	q.ExecutionTime = time.Duration(elapsedMs * float64(time.Millisecond))
	q.LastExecution = parseTime(lastExec)
	q.UpdatedAt = parseTime(updated)
	return &q, nil
}

var _ domain.StoredQueryResolver = (*QueryRepository)(nil)
