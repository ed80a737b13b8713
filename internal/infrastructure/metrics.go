package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DashboardMetrics holds the instruments recorded by the dashboard.
type DashboardMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	UploadsTotal     metric.Int64Counter
	RecordsIngested  metric.Int64Counter
	RowsDropped      metric.Int64Counter
	UnparsedDates    metric.Int64Counter
	StageDuration    metric.Float64Histogram
	ViewsTotal       metric.Int64Counter
	CacheLookups     metric.Int64Counter
	AuthAttempts     metric.Int64Counter
	WebSocketClients metric.Int64UpDownCounter
}

// NewDashboardMetrics creates every dashboard instrument on meter.
func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	m := &DashboardMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests")); err != nil {
		return nil, err
	}
	if m.UploadsTotal, err = meter.Int64Counter("dashboard_uploads_total",
		metric.WithDescription("Upload batches processed")); err != nil {
		return nil, err
	}
	if m.RecordsIngested, err = meter.Int64Counter("dashboard_records_ingested_total",
		metric.WithDescription("Rows read from uploaded files")); err != nil {
		return nil, err
	}
	if m.RowsDropped, err = meter.Int64Counter("dashboard_rows_dropped_total",
		metric.WithDescription("Rows removed by cleaning")); err != nil {
		return nil, err
	}
	if m.UnparsedDates, err = meter.Int64Counter("dashboard_unparsed_dates_total",
		metric.WithDescription("Date values that could not be parsed")); err != nil {
		return nil, err
	}
	if m.StageDuration, err = meter.Float64Histogram("dashboard_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ViewsTotal, err = meter.Int64Counter("dashboard_views_total",
		metric.WithDescription("Views computed")); err != nil {
		return nil, err
	}
	if m.CacheLookups, err = meter.Int64Counter("dashboard_cache_lookups_total",
		metric.WithDescription("Dataset cache lookups by result")); err != nil {
		return nil, err
	}
	if m.AuthAttempts, err = meter.Int64Counter("dashboard_auth_attempts_total",
		metric.WithDescription("Login attempts by outcome")); err != nil {
		return nil, err
	}
	if m.WebSocketClients, err = meter.Int64UpDownCounter("dashboard_websocket_clients",
		metric.WithDescription("Connected websocket clients")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordStage records how long a pipeline stage took.
func (m *DashboardMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *DashboardMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordView counts a computed view.
func (m *DashboardMetrics) RecordView(ctx context.Context, view, status string) {
	if m == nil {
		return
	}
	m.ViewsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("view", view),
		attribute.String("status", status),
	))
}

// RecordIngest counts rows read, dropped and unparsed for one upload batch.
func (m *DashboardMetrics) RecordIngest(ctx context.Context, rows, dropped, unparsed int) {
	if m == nil {
		return
	}
	m.UploadsTotal.Add(ctx, 1)
	m.RecordsIngested.Add(ctx, int64(rows))
	m.RowsDropped.Add(ctx, int64(dropped))
	m.UnparsedDates.Add(ctx, int64(unparsed))
}

// RecordAuth counts a login attempt.
func (m *DashboardMetrics) RecordAuth(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.AuthAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
