package events

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversToTopicSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	var got []Event
	bus.Subscribe(TopicStockQuantityChanged, func(_ context.Context, e Event) {
		got = append(got, e)
	})

	var other int
	bus.Subscribe(TopicAlertCreated, func(_ context.Context, _ Event) { other++ })

	payload := StockQuantityChanged{
		StockItemID: uuid.New(),
		ClinicID:    uuid.New(),
		Kind:        "USAGE",
		OldValue:    10,
		NewValue:    7,
	}
	bus.Publish(ctx, Event{Topic: TopicStockQuantityChanged, Payload: payload})

	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0].Payload)
	assert.Zero(t, other, "unrelated topic must not receive the event")
}

func TestMemoryBus_SubscriptionOrder(t *testing.T) {
	bus := NewMemoryBus()

	var order []string
	bus.Subscribe(TopicRequestTransitioned, func(_ context.Context, _ Event) {
		order = append(order, "first")
	})
	bus.Subscribe(TopicRequestTransitioned, func(_ context.Context, _ Event) {
		order = append(order, "second")
	})

	bus.Publish(context.Background(), Event{Topic: TopicRequestTransitioned})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	// Publishing into the void is a no-op, not a panic.
	bus.Publish(context.Background(), Event{Topic: TopicAlertCreated})
}

func TestMemoryBus_ConcurrentPublish(t *testing.T) {
	bus := NewMemoryBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(TopicStockQuantityChanged, func(_ context.Context, _ Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), Event{Topic: TopicStockQuantityChanged})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, count)
}
