// Package observability exports dispatcher metrics through OpenTelemetry.
package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lifedashboard/life-dashboard/internal/infrastructure/messaging"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// SnapshotSource is satisfied by *messaging.DispatcherMetrics.
type SnapshotSource interface {
	Snapshot() messaging.DispatcherMetricsSnapshot
}

// AuditSource reports the current audit log size. *messaging.Dispatcher
// satisfies it through EventLogLen.
type AuditSource interface {
	EventLogLen() int
}

// MetricsExporter observes dispatcher counters on every collection.
type MetricsExporter struct {
	source       SnapshotSource
	audit        AuditSource
	registration metric.Registration

	published  metric.Int64ObservableCounter
	executions metric.Int64ObservableCounter
	failures   metric.Int64ObservableCounter
	skipped    metric.Int64ObservableCounter
	withheld   metric.Int64ObservableCounter
	avgLatency metric.Float64ObservableGauge
	auditSize  metric.Int64ObservableGauge
}

// NewMetricsExporter registers observable instruments on meter. audit may be nil.
func NewMetricsExporter(meter metric.Meter, source SnapshotSource, audit AuditSource) (*MetricsExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &MetricsExporter{source: source, audit: audit}
	var err error

	counters := []struct {
		dst  *metric.Int64ObservableCounter
		name string
		help string
	}{
		{&e.published, "events_published_total", "Events published, by event type."},
		{&e.executions, "event_handler_executions_total", "Handler invocations."},
		{&e.failures, "event_handler_failures_total", "Handler invocations that returned an error or panicked."},
		{&e.skipped, "event_handler_skipped_total", "Handlers skipped because of version incompatibility."},
		{&e.withheld, "events_withheld_total", "Privacy-sensitive events withheld by the consent gate."},
	}
	observables := make([]metric.Observable, 0, len(counters)+2)
	for _, c := range counters {
		*c.dst, err = meter.Int64ObservableCounter(c.name, metric.WithDescription(c.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", c.name, err)
		}
		observables = append(observables, *c.dst)
	}

	e.avgLatency, err = meter.Float64ObservableGauge("event_handler_duration_avg_seconds",
		metric.WithDescription("Mean handler execution time."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency gauge: %w", err)
	}
	observables = append(observables, e.avgLatency)

	if audit != nil {
		e.auditSize, err = meter.Int64ObservableGauge("event_audit_log_entries",
			metric.WithDescription("Events currently held in the audit log."))
		if err != nil {
			return nil, fmt.Errorf("create audit gauge: %w", err)
		}
		observables = append(observables, e.auditSize)
	}

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *MetricsExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.Snapshot()

	for t, n := range snap.PublishedByType {
		o.ObserveInt64(e.published, n, metric.WithAttributes(attribute.String("event_type", string(t))))
	}

	o.ObserveInt64(e.executions, snap.TotalExecutions)
	o.ObserveInt64(e.failures, snap.TotalFailures)
	o.ObserveInt64(e.skipped, snap.TotalSkipped)
	o.ObserveInt64(e.withheld, snap.TotalWithheld)
	o.ObserveFloat64(e.avgLatency, snap.AverageDuration.Seconds())
	if e.audit != nil {
		o.ObserveInt64(e.auditSize, int64(e.audit.EventLogLen()))
	}
	return nil
}

// Close unregisters the callback.
func (e *MetricsExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
