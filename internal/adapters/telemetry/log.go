package telemetry

import (
	"context"
	"sort"
	"sync"

	"github.com/satishbabariya/insights-go/internal/debug"
)

// SourceTotals counts the executions of one data source.
type SourceTotals struct {
	Queries     int
	Failures    int
	Rows        int
	ConnErrors  int
	LastFailure string
}

// LogTelemetry is the default adapter when no metrics are exported. Events
// go to the debug log and per data source totals are kept in memory; Flush
// logs the totals.
type LogTelemetry struct {
	mu     sync.Mutex
	totals map[string]*SourceTotals
}

// NewLogTelemetry creates a log-only telemetry adapter.
func NewLogTelemetry() *LogTelemetry {
	return &LogTelemetry{totals: map[string]*SourceTotals{}}
}

func (l *LogTelemetry) source(name string) *SourceTotals {
	s := l.totals[name]
	if s == nil {
		s = &SourceTotals{}
		l.totals[name] = s
	}
	return s
}

// RecordQuery counts the execution and logs it at debug level.
func (l *LogTelemetry) RecordQuery(ctx context.Context, info QueryInfo) {
	l.mu.Lock()
	s := l.source(info.DataSource)
	s.Queries++
	s.Rows += info.Rows
	if !info.Success {
		s.Failures++
	}
	l.mu.Unlock()

	debug.Debug("telemetry: query", "data_source", info.DataSource, "operation", info.Operation,
		"elapsed", info.Duration, "success", info.Success, "rows", info.Rows)
}

// RecordError keeps the last error message of the data source.
func (l *LogTelemetry) RecordError(ctx context.Context, info ErrorInfo) {
	if info.Error == nil {
		return
	}
	l.mu.Lock()
	l.source(info.DataSource).LastFailure = info.Error.Error()
	l.mu.Unlock()

	debug.Debug("telemetry: error", "data_source", info.DataSource, "operation", info.Operation, "error", info.Error)
}

// RecordConnection counts failed connection attempts.
func (l *LogTelemetry) RecordConnection(ctx context.Context, info ConnectionInfo) {
	if info.Event != "error" {
		return
	}
	l.mu.Lock()
	l.source(info.DataSource).ConnErrors++
	l.mu.Unlock()

	debug.Debug("telemetry: connection failed", "data_source", info.DataSource, "elapsed", info.Duration)
}

// Totals returns a copy of the totals of dataSource.
func (l *LogTelemetry) Totals(dataSource string) SourceTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.totals[dataSource]; ok {
		return *s
	}
	return SourceTotals{}
}

// Flush logs the totals of every data source seen so far.
func (l *LogTelemetry) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.totals))
	for name := range l.totals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := l.totals[name]
		debug.Debug("telemetry: totals", "data_source", name, "queries", s.Queries,
			"failures", s.Failures, "rows", s.Rows, "connection_errors", s.ConnErrors)
	}
	return nil
}

// Close does nothing.
func (l *LogTelemetry) Close(ctx context.Context) error {
	return nil
}

var _ Telemetry = (*LogTelemetry)(nil)
