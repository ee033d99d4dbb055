package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
)

// tracerName is the instrumentation scope name for reflex tracing.
const tracerName = "github.com/reflexhq/reflex"

// Tracing returns middleware that wraps job execution in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through with zero
// overhead.
//
// Span attributes include: reflex.job.name, reflex.source,
// reflex.correlation_id. On error, the span status is set to codes.Error
// with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (any, error) {
		attrs := []attribute.KeyValue{
			attribute.String("reflex.job.name", j.ResolvedName()),
		}
		if tok, ok := reflex.TrackingTokenFrom(ctx); ok {
			attrs = append(attrs,
				attribute.String("reflex.source", tok.Source),
				attribute.String("reflex.correlation_id", tok.CorrelationID),
			)
		}

		ctx, span := tracer.Start(ctx, "reflex.job.execute",
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		v, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return v, err
	}
}
