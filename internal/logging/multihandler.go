// Package logging provides the slog handlers that carry error reports:
// a console handler that prints report blocks verbatim, a per-run JSON
// log file, and a fan-out handler joining them.
package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoHandlers is returned when a MultiHandler would have nothing to write to.
var ErrNoHandlers = errors.New("MultiHandler: at least one handler is required")

// MultiHandler dispatches each record to several handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler wraps the given non-nil handlers.
func NewMultiHandler(handlers ...slog.Handler) (*MultiHandler, error) {
	list := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			list = append(list, h)
		}
	}
	if len(list) == 0 {
		return nil, ErrNoHandlers
	}
	return &MultiHandler{handlers: list}, nil
}

// Enabled is true when at least one handler is enabled for level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of r to every enabled handler and joins their errors.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handlers returns a copy of the wrapped handlers.
func (h *MultiHandler) Handlers() []slog.Handler {
	return append([]slog.Handler(nil), h.handlers...)
}

// WithAttrs applies attrs to every wrapped handler.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

// WithGroup applies the group to every wrapped handler.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}
