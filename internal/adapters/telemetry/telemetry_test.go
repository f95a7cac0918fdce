package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

func TestLogTelemetry(t *testing.T) {
	ctx := context.Background()
	telemetry := NewLogTelemetry()

	telemetry.RecordQuery(ctx, QueryInfo{DataSource: "warehouse", Operation: "execute", Duration: time.Millisecond, Success: true, Rows: 3})
	telemetry.RecordQuery(ctx, QueryInfo{DataSource: "warehouse", Operation: "execute", Success: false})
	telemetry.RecordError(ctx, ErrorInfo{Error: errors.New("test error"), DataSource: "warehouse"})
	telemetry.RecordConnection(ctx, ConnectionInfo{DataSource: "warehouse", Event: "acquire"})
	telemetry.RecordConnection(ctx, ConnectionInfo{DataSource: "warehouse", Event: "error"})

	got := telemetry.Totals("warehouse")
	want := SourceTotals{Queries: 2, Failures: 1, Rows: 3, ConnErrors: 1, LastFailure: "test error"}
	if got != want {
		t.Errorf("Expected totals %+v, got %+v", want, got)
	}
	if other := telemetry.Totals("crm"); other != (SourceTotals{}) {
		t.Errorf("Expected no totals for an unseen data source, got %+v", other)
	}

	if err := telemetry.Flush(ctx); err != nil {
		t.Errorf("Flush should not return error, got: %v", err)
	}
	if err := telemetry.Close(ctx); err != nil {
		t.Errorf("Close should not return error, got: %v", err)
	}
}

func TestPrometheusTelemetry(t *testing.T) {
	ctx := context.Background()
	telemetry := NewPrometheusTelemetry(&Config{Type: "prometheus"})

	telemetry.RecordQuery(ctx, QueryInfo{DataSource: "warehouse", Operation: "execute", Duration: 100 * time.Millisecond, Success: true})
	telemetry.RecordQuery(ctx, QueryInfo{DataSource: "warehouse", Operation: "execute", Duration: 200 * time.Millisecond, Success: false})
	telemetry.RecordError(ctx, ErrorInfo{
		Error:      &domain.QueryExecutionError{DataSource: "warehouse", Cause: errors.New("boom")},
		DataSource: "warehouse",
		Operation:  "execute",
	})
	telemetry.RecordConnection(ctx, ConnectionInfo{DataSource: "warehouse", ActiveConnections: 3})

	if got := testutil.ToFloat64(telemetry.queryTotal.WithLabelValues("warehouse", "execute", "success")); got != 1 {
		t.Errorf("Expected 1 success query, got %v", got)
	}
	if got := testutil.ToFloat64(telemetry.queryTotal.WithLabelValues("warehouse", "execute", "error")); got != 1 {
		t.Errorf("Expected 1 failed query, got %v", got)
	}
	if got := testutil.ToFloat64(telemetry.errorTotal.WithLabelValues("warehouse", "execute", "QueryExecutionError")); got != 1 {
		t.Errorf("Expected 1 QueryExecutionError, got %v", got)
	}
	if got := testutil.ToFloat64(telemetry.connections.WithLabelValues("warehouse")); got != 3 {
		t.Errorf("Expected 3 connections, got %v", got)
	}
	if n := testutil.CollectAndCount(telemetry.queryDuration); n != 1 {
		t.Errorf("Expected 1 histogram series, got %d", n)
	}
}

func TestPrometheusFlushWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.prom")
	telemetry := NewPrometheusTelemetry(&Config{Type: "prometheus", MetricsFile: path})
	telemetry.RecordQuery(context.Background(), QueryInfo{DataSource: "warehouse", Operation: "execute", Success: true})

	if err := telemetry.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), "insights_queries_total") {
		t.Errorf("metrics file missing queries_total:\n%s", data)
	}
}

func TestNewTelemetry(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"nil", nil, false},
		{"noop", &Config{Type: "noop"}, false},
		{"prometheus", &Config{Type: "prometheus"}, false},
		{"unknown", &Config{Type: "statsd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel, err := NewTelemetry(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTelemetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tel == nil {
				t.Error("NewTelemetry() returned nil adapter")
			}
		})
	}

	tel, _ := NewTelemetry(&Config{MetricsFile: "metrics.prom"})
	if _, ok := tel.(*PrometheusTelemetry); !ok {
		t.Errorf("a metrics file should select prometheus, got %T", tel)
	}
}
