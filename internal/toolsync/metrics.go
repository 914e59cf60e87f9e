package toolsync

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/bobmcallan/vire-tools/internal/toolsync"

// syncMetrics records reconcile outcomes and run durations.
type syncMetrics struct {
	outcomes    metric.Int64Counter
	runDuration metric.Float64Histogram
}

func newSyncMetrics(meter metric.Meter) (*syncMetrics, error) {
	outcomes, err := meter.Int64Counter("vire_tools.sync.outcomes",
		metric.WithDescription("Number of tool reconcile outcomes"),
	)
	if err != nil {
		return nil, err
	}

	runDur, err := meter.Float64Histogram("vire_tools.sync.run.duration",
		metric.WithDescription("Duration of a tool sync run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &syncMetrics{outcomes: outcomes, runDuration: runDur}, nil
}

func (m *syncMetrics) recordOutcome(ctx context.Context, o Outcome) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("status", string(o.Status))}
	if o.Reason != "" {
		attrs = append(attrs, attribute.String("reason", string(o.Reason)))
	}
	if o.DryRun {
		attrs = append(attrs, attribute.Bool("dry_run", true))
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *syncMetrics) recordRun(ctx context.Context, elapsed time.Duration, failures int) {
	if m == nil {
		return
	}
	m.runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.Bool("failed", failures > 0),
	))
}
