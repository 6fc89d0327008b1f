package messaging

import (
	"context"
	"log/slog"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

// Publisher is anything events can be published through: a *Dispatcher or a
// *ConsentGate.
type Publisher interface {
	Publish(ctx context.Context, event shared.Event)
}

type publisherKey struct{}

// WithDispatcher returns a copy of ctx carrying p as the application's
// publisher. Create it once at startup and pass the context down; tests build
// their own.
func WithDispatcher(ctx context.Context, p Publisher) context.Context {
	return context.WithValue(ctx, publisherKey{}, p)
}

// FromContext returns the publisher attached to ctx, if any.
func FromContext(ctx context.Context) (Publisher, bool) {
	p, ok := ctx.Value(publisherKey{}).(Publisher)
	return p, ok
}

// PublishEvent publishes event through the publisher attached to ctx.
// Without one the event is dropped with a warning.
func PublishEvent(ctx context.Context, event shared.Event) {
	p, ok := FromContext(ctx)
	if !ok {
		attrs := []any{}
		if event != nil {
			attrs = append(attrs, "event_type", event.EventType())
		}
		slog.Default().WarnContext(ctx, "no dispatcher in context, dropping event", attrs...)
		return
	}
	p.Publish(ctx, event)
}
