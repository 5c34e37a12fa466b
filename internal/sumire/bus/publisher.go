package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Publisher delivers settings-change events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NopPublisher discards all events. Used when no consumer is configured.
type NopPublisher struct{}

// Publish validates the event and drops it.
func (NopPublisher) Publish(_ context.Context, evt Event) error {
	return evt.Validate()
}

// InProc fans events out to in-process subscribers. Delivery is best-effort:
// a subscriber whose buffer is full misses the event rather than blocking
// the settings write that produced it.
type InProc struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewInProc returns an empty in-process bus.
func NewInProc() *InProc {
	return &InProc{subs: make(map[int]chan Event)}
}

// Subscribe registers a consumer with the given buffer size and returns its
// channel plus an unsubscribe function. The channel is closed on
// unsubscribe.
func (b *InProc) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish validates evt and offers it to every subscriber.
func (b *InProc) Publish(_ context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("bus publish: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			slog.Warn("event bus subscriber is full, dropping event",
				"subscriber", id, "event_id", evt.ID, "user", evt.UserID)
		}
	}
	return nil
}

// Multi publishes to several publishers in order, returning the first error
// after attempting all of them.
type Multi []Publisher

// Publish delivers evt to every wrapped publisher.
func (m Multi) Publish(ctx context.Context, evt Event) error {
	var firstErr error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
