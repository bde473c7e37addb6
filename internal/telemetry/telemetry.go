// Package telemetry is a thin OpenTelemetry metrics facade. Each binary
// constructs one Metrics instance and passes it to its components, which
// call Add on its exported counters directly — the metrics analogue of the
// teacher's one slog.With-scoped logger per component.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the counters named throughout spec.md's Health
// and error-taxonomy sections.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter

	EventsReceived     metric.Int64Counter
	EventsForwarded    metric.Int64Counter
	DroppedEvents      metric.Int64Counter
	DispatchFailed     metric.Int64Counter
	ReconnectCount     metric.Int64Counter
	ValidationErrors   metric.Int64Counter
	BatchFlushes       metric.Int64Counter
	BatchFlushFailures metric.Int64Counter
	DeadLettered       metric.Int64Counter
	ProviderPolls      metric.Int64Counter
	ProviderFailures   metric.Int64Counter
	RetentionJobRuns   metric.Int64Counter
	RetentionJobErrors metric.Int64Counter
}

// New builds a Metrics facade backed by an in-process MeterProvider. service
// names the binary (ingestion-client, enrichment-service, retention-engine)
// for the resulting instrument namespace.
func New(service string) *Metrics {
	provider := sdkmetric.NewMeterProvider()
	meter := provider.Meter("homegraph/" + service)

	m := &Metrics{provider: provider, meter: meter}
	m.EventsReceived = mustCounter(meter, "events_received", "hub events received")
	m.EventsForwarded = mustCounter(meter, "events_forwarded", "events accepted onto the dispatch queue")
	m.DroppedEvents = mustCounter(meter, "dropped_events", "events dropped by dispatcher overflow")
	m.DispatchFailed = mustCounter(meter, "dispatch_failed_events", "events that exhausted dispatch retries")
	m.ReconnectCount = mustCounter(meter, "reconnect_count", "hub reconnect cycles")
	m.ValidationErrors = mustCounter(meter, "validation_errors", "rejected intake payloads")
	m.BatchFlushes = mustCounter(meter, "batch_flushes", "successful batch flushes")
	m.BatchFlushFailures = mustCounter(meter, "batch_flush_failures", "batch flush attempts that failed")
	m.DeadLettered = mustCounter(meter, "dead_lettered_points", "points written to the dead-letter log")
	m.ProviderPolls = mustCounter(meter, "provider_polls", "provider refresh attempts")
	m.ProviderFailures = mustCounter(meter, "provider_failures", "provider refresh failures")
	m.RetentionJobRuns = mustCounter(meter, "retention_job_runs", "retention job executions")
	m.RetentionJobErrors = mustCounter(meter, "retention_job_errors", "retention job failures")
	return m
}

func mustCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Error("failed to register metric", "name", name, "error", err)
	}
	return c
}

// Shutdown flushes and releases the underlying meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
