// Package executor implements query execution.
package executor

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/insights-go/internal/adapters/telemetry"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/mapper"
	"github.com/satishbabariya/insights-go/internal/debug"
)

// Engine hands out scoped connections. *pool.Pool implements it.
type Engine interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// QueryExecutor runs statements on a dedicated connection and records one
// execution log entry per call.
type QueryExecutor struct {
	engine    Engine
	sink      domain.ExecutionLogSink
	telemetry telemetry.Telemetry
}

// NewQueryExecutor creates a new query executor. sink and tel may be nil.
func NewQueryExecutor(engine Engine, sink domain.ExecutionLogSink, tel telemetry.Telemetry) *QueryExecutor {
	if tel == nil {
		tel = telemetry.NewLogTelemetry()
	}
	return &QueryExecutor{
		engine:    engine,
		sink:      sink,
		telemetry: tel,
	}
}

// Execute runs statement and fetches every row while the connection is held.
// The connection is released on every path. No partial result is returned on
// failure.
func (e *QueryExecutor) Execute(ctx context.Context, statement string, ec domain.ExecutionContext) (res *domain.RawResult, err error) {
	start := time.Now()
	entry := domain.ExecutionLogEntry{
		ID:         uuid.NewString(),
		Statement:  statement,
		DataSource: ec.DataSource,
		Timestamp:  start,
	}
	defer func() {
		entry.Elapsed = time.Since(start)
		entry.Success = err == nil
		if err != nil {
			entry.Error = err.Error()
		} else if res != nil {
			entry.RowCount = len(res.Rows)
		}
		e.record(ctx, entry, err)
	}()

	conn, err := e.engine.Conn(ctx)
	if err != nil {
		e.telemetry.RecordConnection(ctx, telemetry.ConnectionInfo{
			DataSource: ec.DataSource,
			Event:      "error",
			Duration:   time.Since(start),
		})
		return nil, &domain.ConnectionError{DataSource: ec.DataSource, Cause: err}
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, &domain.QueryExecutionError{DataSource: ec.DataSource, Statement: statement, Cause: err}
	}
	defer rows.Close()

	raw, err := mapper.ScanRows(rows)
	if err != nil {
		return nil, &domain.QueryExecutionError{DataSource: ec.DataSource, Statement: statement, Cause: err}
	}
	return raw, nil
}

func (e *QueryExecutor) record(ctx context.Context, entry domain.ExecutionLogEntry, err error) {
	e.telemetry.RecordQuery(ctx, telemetry.QueryInfo{
		DataSource: entry.DataSource,
		Operation:  "execute",
		Duration:   entry.Elapsed,
		Success:    entry.Success,
		Rows:       entry.RowCount,
	})
	if err != nil {
		e.telemetry.RecordError(ctx, telemetry.ErrorInfo{
			Error:      err,
			DataSource: entry.DataSource,
			Operation:  "execute",
			Query:      entry.Statement,
		})
		debug.Debug("Query failed", "data_source", entry.DataSource, "elapsed", entry.Elapsed, "error", err)
	} else {
		debug.Debug("Query executed", "data_source", entry.DataSource, "elapsed", entry.Elapsed, "rows", entry.RowCount)
	}

	if e.sink == nil {
		return
	}
	if appendErr := e.sink.Append(context.WithoutCancel(ctx), entry); appendErr != nil {
		debug.Warn("Failed to write execution log", "data_source", entry.DataSource, "error", appendErr)
	}
}
