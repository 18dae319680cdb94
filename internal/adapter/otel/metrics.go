package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "invoiceflow"

// Metrics holds the pipeline metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	StageInvocations metric.Int64Counter
	StageFailures    metric.Int64Counter
	StageLatency     metric.Float64Histogram
	Runs             metric.Int64Counter
	RunDuration      metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.StageInvocations, err = meter.Int64Counter("invoiceflow.stage.invocations",
		metric.WithDescription("Number of stage invocations"))
	if err != nil {
		return nil, err
	}

	m.StageFailures, err = meter.Int64Counter("invoiceflow.stage.failures",
		metric.WithDescription("Number of failed stage invocations"))
	if err != nil {
		return nil, err
	}

	m.StageLatency, err = meter.Float64Histogram("invoiceflow.stage.latency_ms",
		metric.WithDescription("Stage latency in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	m.Runs, err = meter.Int64Counter("invoiceflow.runs",
		metric.WithDescription("Number of finished runs by status"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("invoiceflow.run.duration_seconds",
		metric.WithDescription("Run duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordStage records one stage invocation.
func (m *Metrics) RecordStage(ctx context.Context, agentID, outcome string, latency time.Duration, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", agentID), attribute.String("outcome", outcome))
	m.StageInvocations.Add(ctx, 1, attrs)
	m.StageLatency.Record(ctx, float64(latency.Microseconds())/1000, attrs)
	if failed {
		m.StageFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", agentID)))
	}
}

// RecordRun records one finished run.
func (m *Metrics) RecordRun(ctx context.Context, status, halt string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status), attribute.String("halt", halt))
	m.Runs.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
}
