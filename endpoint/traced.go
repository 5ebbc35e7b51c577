package endpoint

import (
	"context"

	"github.com/ZutrixPog/llmdispatch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ZutrixPog/llmdispatch/endpoint"

type traced struct {
	next   dispatcher.Endpoint
	tracer trace.Tracer
}

// Traced wraps ep so every call is recorded as a span. A nil tracer falls
// back to the global provider.
func Traced(ep dispatcher.Endpoint, tracer trace.Tracer) dispatcher.Endpoint {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &traced{next: ep, tracer: tracer}
}

func (t *traced) Name() string {
	return t.next.Name()
}

func (t *traced) Execute(ctx context.Context, request []byte) (string, error) {
	ctx, span := t.tracer.Start(ctx, "endpoint.execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("endpoint.name", t.next.Name()),
			attribute.Int("request.size", len(request)),
		))
	defer span.End()

	out, err := t.next.Execute(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("response.size", len(out)))
	return out, nil
}
