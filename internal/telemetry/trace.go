package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func start(ctx context.Context, name, component string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("component", component))
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartSessionSpan starts "session.<operation>" for bootstrap, login,
// logout and the second-factor calls.
//
//	ctx, span := telemetry.StartSessionSpan(ctx, "bootstrap")
//	defer func() { telemetry.End(span, err) }()
func StartSessionSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return start(ctx, "session."+operation, "session", attribute.String("operation", operation))
}

// StartFormSpan starts the span of one form submission.
func StartFormSpan(ctx context.Context, method, endpoint string) (context.Context, trace.Span) {
	return start(ctx, "form.submit", "form",
		attribute.String("http.method", method),
		attribute.String("form.endpoint", endpoint),
	)
}

// StartCommandSpan starts the root span of one adminctl invocation.
func StartCommandSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return start(ctx, "command."+path, "cli", attribute.String("command", path))
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records err on the span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// End records err (if any) and ends the span. Meant for defer with a
// named error result.
func End(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
