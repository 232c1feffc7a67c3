package events

import (
	"context"
	"sync"
)

// Handler consumes one event. Handlers run on the publisher's goroutine, so
// they must not block for long; anything slow belongs behind its own queue.
type Handler func(ctx context.Context, e Event)

// Bus is the in-process publish/subscribe contract between modules.
// Publishers fire events after their transaction commits — never inside it.
type Bus interface {
	Publish(ctx context.Context, e Event)
	Subscribe(topic string, h Handler)
}

// MemoryBus is a synchronous in-process Bus. Delivery order within a topic
// follows subscription order.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *MemoryBus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := b.handlers[e.Topic]
	b.mu.RUnlock()
	for _, h := range hs {
		h(ctx, e)
	}
}
