package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "invoiceflow"

// StartRunSpan starts a span for one document run.
func StartRunSpan(ctx context.Context, documentID, traceID, planName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("document.id", documentID),
			attribute.String("run.trace_id", traceID),
			attribute.String("plan.name", planName),
		),
	)
}

// StartStageSpan starts a span for one stage invocation.
func StartStageSpan(ctx context.Context, agentID, documentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline.stage",
		trace.WithAttributes(
			attribute.String("stage.id", agentID),
			attribute.String("document.id", documentID),
		),
	)
}

// StartRouteSpan starts a span for single-step dispatch.
func StartRouteSpan(ctx context.Context, documentID, status string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline.route",
		trace.WithAttributes(
			attribute.String("document.id", documentID),
			attribute.String("document.status", status),
		),
	)
}

// EndSpan records err (if any) and ends the span.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
