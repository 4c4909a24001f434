package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Bus fans events out to subscribers without ever blocking the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event // eventType -> channels
	allSubs     []chan Event
	history     *EventLog // may be nil
	logger      *slog.Logger
	closed      bool
}

// NewBus creates a new event bus.
// The EventLog is optional - pass nil to disable persistence.
func NewBus(history *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		history:     history,
		logger:      logger.With("component", "bus"),
	}
}

// Publish persists the event and delivers it to subscribers.
// A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b.history != nil {
		if _, err := b.history.Append(e); err != nil {
			b.logger.Error("failed to persist event", "type", e.EventType(), "error", err)
		}
	}

	// Sends are non-blocking, so holding the read lock keeps Unsubscribe
	// from closing a channel mid-delivery.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	for _, ch := range b.subscribers[e.EventType()] {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				"type", e.EventType(),
				"entity_type", e.EntityType(),
				"entity_id", e.EntityID())
		}
	}
	for _, ch := range b.allSubs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("all-subscriber channel full, dropping event", "type", e.EventType())
		}
	}
	return nil
}

// Subscribe returns a channel receiving events of the given types.
func (b *Bus) Subscribe(bufferSize int, eventTypes ...string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}
	return ch
}

// SubscribeAll returns a channel for all events.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.allSubs = append(b.allSubs, ch)
	return ch
}

// Unsubscribe removes a subscription channel and closes it.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var found chan Event
	match := func(c chan Event) bool {
		if c == ch {
			found = c
			return true
		}
		return false
	}
	for eventType, subs := range b.subscribers {
		b.subscribers[eventType] = slices.DeleteFunc(subs, match)
	}
	b.allSubs = slices.DeleteFunc(b.allSubs, match)

	if found != nil {
		close(found)
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	closed := make(map[chan Event]bool)
	closeOnce := func(ch chan Event) {
		if !closed[ch] {
			closed[ch] = true
			close(ch)
		}
	}
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			closeOnce(ch)
		}
	}
	for _, ch := range b.allSubs {
		closeOnce(ch)
	}
	b.subscribers = nil
	b.allSubs = nil
	return nil
}
