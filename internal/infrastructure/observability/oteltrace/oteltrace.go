package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "coffee-register"

type tracer struct{ t trace.Tracer }

// New returns a tracer backed by the globally registered OTel TracerProvider.
// Without an SDK provider installed the spans are non-recording.
func New(name string) observability.Tracer {
	if name == "" {
		name = defaultTracerName
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
