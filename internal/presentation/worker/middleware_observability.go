package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/coffee-register/internal/domain/outbox"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext puts an event-scoped logger on ctx for background handlers.
// Fields: event, event_id (generated), trace_id/span_id when ctx carries a valid span,
// plus caller-provided low-cardinality attributes such as "worker".
func WithEventContext(ctx context.Context, base observability.Logger, e domoutbox.Event, attrs map[string]string) context.Context {
	if base == nil {
		base = logctx.FromOr(ctx, observability.NopLogger())
	}

	fields := make([]observability.Field, 0, 4+len(attrs))
	fields = append(fields,
		observability.F("event", e.EventName()),
		observability.F("event_id", uuid.NewString()),
	)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	for k, v := range attrs {
		if v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Handle wraps h so every invocation runs with an event-scoped logger.
func Handle(base observability.Logger, attrs map[string]string, h domoutbox.Handler) domoutbox.Handler {
	return func(ctx context.Context, e domoutbox.Event) error {
		return h(WithEventContext(ctx, base, e, attrs), e)
	}
}
