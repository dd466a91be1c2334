package ezerr

import (
	"context"
	"log/slog"
)

// Publisher receives reported events. Publish must not block the reporter
// on slow delivery; implementations queue or drop instead.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event)

// Publish calls f(ctx, ev).
func (f PublisherFunc) Publish(ctx context.Context, ev Event) {
	f(ctx, ev)
}

type multiPublisher []Publisher

// MultiPublisher fans an event out to every non-nil publisher in order.
// A publisher that panics is logged to slog.Default() and skipped; the
// rest still receive the event.
func MultiPublisher(publishers ...Publisher) Publisher {
	list := make(multiPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			list = append(list, p)
		}
	}
	return list
}

func (m multiPublisher) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		safePublish(ctx, p, ev, slog.Default())
	}
}

// safePublish calls p.Publish and logs a panic instead of propagating it.
func safePublish(ctx context.Context, p Publisher, ev Event, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("Event publisher panicked", "event_id", ev.ID, "panic", rec)
		}
	}()
	p.Publish(ctx, ev)
}
