package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
)

const (
	ServiceName    = "divrisk"
	ServiceVersion = "v1.0.0"
	MeterName      = "divrisk"
)

// MetricsProviders holds the OpenTelemetry metric provider and the
// Prometheus scrape handler backed by it.
type MetricsProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeMetrics sets up the OTel meter provider with a Prometheus reader.
func InitializeMetrics(logger *slog.Logger) (*MetricsProviders, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	logger.Info("metrics initialized", slog.String("exporter", "prometheus"))

	return &MetricsProviders{
		MeterProvider:  mp,
		Meter:          mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion)),
		PrometheusHTTP: promhttp.Handler(),
		Logger:         logger,
	}, nil
}

// Shutdown gracefully shuts down the meter provider.
func (p *MetricsProviders) Shutdown(ctx context.Context) error {
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("meter provider shutdown: %w", err)
		}
	}
	return nil
}

// PipelineMetrics holds the application-specific instruments.
type PipelineMetrics struct {
	FetchRequestsTotal metric.Int64Counter
	FetchErrorsTotal   metric.Int64Counter
	RowsWrittenTotal   metric.Int64Counter
	RowsFlaggedTotal   metric.Int64Counter
	StageDuration      metric.Float64Histogram
	StageExecutions    metric.Int64Counter
	ActiveRuns         metric.Int64UpDownCounter
}

// CreatePipelineMetrics creates the pipeline instruments on the given meter.
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	fetchRequests, err := meter.Int64Counter(
		"fetch_requests_total",
		metric.WithDescription("Total number of upstream API requests"),
	)
	if err != nil {
		return nil, err
	}

	fetchErrors, err := meter.Int64Counter(
		"fetch_errors_total",
		metric.WithDescription("Total number of upstream API request failures"),
	)
	if err != nil {
		return nil, err
	}

	rowsWritten, err := meter.Int64Counter(
		"feature_rows_written_total",
		metric.WithDescription("Total number of feature rows persisted"),
	)
	if err != nil {
		return nil, err
	}

	rowsFlagged, err := meter.Int64Counter(
		"feature_rows_flagged_total",
		metric.WithDescription("Total number of feature rows flagged by validation"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"stage_duration_seconds",
		metric.WithDescription("Pipeline stage execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageExecutions, err := meter.Int64Counter(
		"stage_executions_total",
		metric.WithDescription("Total number of pipeline stage executions"),
	)
	if err != nil {
		return nil, err
	}

	activeRuns, err := meter.Int64UpDownCounter(
		"active_runs",
		metric.WithDescription("Number of pipeline runs in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		FetchRequestsTotal: fetchRequests,
		FetchErrorsTotal:   fetchErrors,
		RowsWrittenTotal:   rowsWritten,
		RowsFlaggedTotal:   rowsFlagged,
		StageDuration:      stageDuration,
		StageExecutions:    stageExecutions,
		ActiveRuns:         activeRuns,
	}, nil
}

// RecordRows records persisted and flagged feature row counts.
func RecordRows(ctx context.Context, m *PipelineMetrics, written, flagged int) {
	if m == nil {
		return
	}
	m.RowsWrittenTotal.Add(ctx, int64(written))
	m.RowsFlaggedTotal.Add(ctx, int64(flagged))
}

// RecordStageMetrics records execution count and duration for a stage.
func RecordStageMetrics(ctx context.Context, m *PipelineMetrics, stageID string, duration time.Duration, success bool) {
	if m == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("stage.id", stageID),
		attribute.String("status", status),
	)

	m.StageExecutions.Add(ctx, 1, attrs)
	m.StageDuration.Record(ctx, duration.Seconds(), attrs)
}
