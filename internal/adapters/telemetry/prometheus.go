package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// PrometheusTelemetry implements Telemetry using Prometheus metrics.
type PrometheusTelemetry struct {
	registry *prometheus.Registry
	file     string

	queryDuration *prometheus.HistogramVec
	queryTotal    *prometheus.CounterVec
	errorTotal    *prometheus.CounterVec
	connections   *prometheus.GaugeVec
}

// NewPrometheusTelemetry creates a new Prometheus telemetry adapter with its
// own registry.
func NewPrometheusTelemetry(config *Config) *PrometheusTelemetry {
	ns := "insights"
	if config != nil && config.Namespace != "" {
		ns = config.Namespace
	}

	p := &PrometheusTelemetry{
		registry: prometheus.NewRegistry(),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "query_duration_seconds",
			Help:      "Duration of query executions.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"data_source", "operation"}),
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "queries_total",
			Help:      "Query executions by outcome.",
		}, []string{"data_source", "operation", "status"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"data_source", "operation", "kind"}),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "connections_in_use",
			Help:      "Connections in use per data source.",
		}, []string{"data_source"}),
	}
	if config != nil {
		p.file = config.MetricsFile
	}

	p.registry.MustRegister(p.queryDuration, p.queryTotal, p.errorTotal, p.connections)
	return p
}

// RecordQuery records a query execution.
func (p *PrometheusTelemetry) RecordQuery(ctx context.Context, info QueryInfo) {
	p.queryDuration.WithLabelValues(info.DataSource, info.Operation).Observe(info.Duration.Seconds())

	status := "success"
	if !info.Success {
		status = "error"
	}
	p.queryTotal.WithLabelValues(info.DataSource, info.Operation, status).Inc()
}

// RecordError records an error under its kind.
func (p *PrometheusTelemetry) RecordError(ctx context.Context, info ErrorInfo) {
	p.errorTotal.WithLabelValues(info.DataSource, info.Operation, domain.KindOf(info.Error)).Inc()
}

// RecordConnection records the connections in use.
func (p *PrometheusTelemetry) RecordConnection(ctx context.Context, info ConnectionInfo) {
	p.connections.WithLabelValues(info.DataSource).Set(float64(info.ActiveConnections))
}

// Registry returns the registry holding the collectors.
func (p *PrometheusTelemetry) Registry() *prometheus.Registry {
	return p.registry
}

// Flush writes the metrics to the configured metrics file, if any.
func (p *PrometheusTelemetry) Flush(ctx context.Context) error {
	if p.file == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(p.file, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Close flushes the metrics.
func (p *PrometheusTelemetry) Close(ctx context.Context) error {
	return p.Flush(ctx)
}

// Ensure PrometheusTelemetry implements Telemetry interface.
var _ Telemetry = (*PrometheusTelemetry)(nil)
