package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/statmill/statmill"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Ingestion metrics
	EventsAcceptedTotal metric.Int64Counter
	EventsRejectedTotal metric.Int64Counter
	// EventsDroppedTotal counts events lost to storage failures. The client
	// never retries, so this is the operational alerting signal for data loss.
	EventsDroppedTotal metric.Int64Counter
	IngestDuration     metric.Float64Histogram

	// Read-path metrics
	AnalyticsQueriesTotal metric.Int64Counter
	AnalyticsErrorsTotal  metric.Int64Counter

	// Retention metrics
	EventsExpiredTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.EventsAcceptedTotal, _ = meter.Int64Counter(
		"statmill.events.accepted.total",
		metric.WithDescription("Total number of events accepted and persisted"),
		metric.WithUnit("{event}"),
	)

	m.EventsRejectedTotal, _ = meter.Int64Counter(
		"statmill.events.rejected.total",
		metric.WithDescription("Total number of events rejected for missing or invalid fields"),
		metric.WithUnit("{event}"),
	)

	m.EventsDroppedTotal, _ = meter.Int64Counter(
		"statmill.events.dropped.total",
		metric.WithDescription("Total number of events lost to storage failures"),
		metric.WithUnit("{event}"),
	)

	m.IngestDuration, _ = meter.Float64Histogram(
		"statmill.ingest.duration",
		metric.WithDescription("Duration of event ingestion requests"),
		metric.WithUnit("ms"),
	)

	m.AnalyticsQueriesTotal, _ = meter.Int64Counter(
		"statmill.analytics.queries.total",
		metric.WithDescription("Total number of analytics queries served"),
		metric.WithUnit("{query}"),
	)

	m.AnalyticsErrorsTotal, _ = meter.Int64Counter(
		"statmill.analytics.errors.total",
		metric.WithDescription("Total number of analytics queries that failed"),
		metric.WithUnit("{error}"),
	)

	m.EventsExpiredTotal, _ = meter.Int64Counter(
		"statmill.events.expired.total",
		metric.WithDescription("Total number of events deleted by the retention sweeper"),
		metric.WithUnit("{event}"),
	)

	return m
}
