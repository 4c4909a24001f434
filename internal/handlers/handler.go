// Package handlers reacts to download failures, ignores and imports.
package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/arrq/internal/events"
)

// Handler processes events of specific types.
type Handler interface {
	// Start begins processing events (blocking).
	Start(ctx context.Context) error

	// Name returns handler name for logging.
	Name() string
}

// BaseHandler provides common handler functionality.
type BaseHandler struct {
	bus    *events.Bus
	logger *slog.Logger
}

// NewBaseHandler creates a base handler logging as component name.
func NewBaseHandler(bus *events.Bus, name string, logger *slog.Logger) *BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseHandler{
		bus:    bus,
		logger: logger.With("component", name),
	}
}

// Bus returns the event bus.
func (h *BaseHandler) Bus() *events.Bus {
	return h.bus
}

// Logger returns the handler's logger.
func (h *BaseHandler) Logger() *slog.Logger {
	return h.logger
}

// publish sends an event and logs a failure.
func (h *BaseHandler) publish(ctx context.Context, e events.Event) {
	if err := h.bus.Publish(ctx, e); err != nil {
		h.logger.Error("failed to publish event", "type", e.EventType(), "error", err)
	}
}

// loop delivers events from ch to handle until ctx is canceled or ch closes.
func (h *BaseHandler) loop(ctx context.Context, ch <-chan events.Event, handle func(context.Context, events.Event)) error {
	defer h.bus.Unsubscribe(ch)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return nil // bus closed
			}
			handle(ctx, e)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
