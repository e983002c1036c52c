package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrSessionID = attribute.Key("taskloop.session.id")
	AttrTask      = attribute.Key("taskloop.task")
	AttrCursor    = attribute.Key("taskloop.cursor")
	AttrLap       = attribute.Key("taskloop.lap")
	AttrSubState  = attribute.Key("taskloop.substate")
	AttrOutcome   = attribute.Key("taskloop.tick.outcome")
)

// StartTick starts the span covering one orchestrator tick.
func StartTick(ctx context.Context, tracer trace.Tracer, sessionID string, cursor, lap int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "taskloop.tick",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrSessionID.String(sessionID),
			AttrCursor.Int(cursor),
			AttrLap.Int(lap),
		),
	)
}

// EndTick records how the tick ended. A non-empty failure marks the span as
// an error.
func EndTick(span trace.Span, task, subState, outcome, failure string) {
	span.SetAttributes(
		AttrTask.String(task),
		AttrSubState.String(subState),
		AttrOutcome.String(outcome),
	)
	if failure != "" {
		span.SetStatus(codes.Error, failure)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
