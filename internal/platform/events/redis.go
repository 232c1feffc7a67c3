package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamPublisher mirrors bus events onto Redis Streams (one stream per
// topic, XADD of a JSON payload) so out-of-process consumers can follow the
// core without touching its database. Publish failures are logged and
// swallowed: the mutation that produced the event has already committed.
type StreamPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewStreamPublisher(addr string, logger *zap.Logger) (*StreamPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &StreamPublisher{client: client, logger: logger}, nil
}

// Attach subscribes the publisher to every core topic on the given bus.
func (p *StreamPublisher) Attach(bus Bus) {
	for _, topic := range []string{
		TopicStockQuantityChanged,
		TopicAlertCreated,
		TopicRequestTransitioned,
	} {
		bus.Subscribe(topic, p.publish)
	}
}

func (p *StreamPublisher) publish(ctx context.Context, e Event) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		p.logger.Error("marshal event payload", zap.String("topic", e.Topic), zap.Error(err))
		return
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: e.Topic,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		p.logger.Error("publish event to stream", zap.String("topic", e.Topic), zap.Error(err))
	}
}

func (p *StreamPublisher) Close() error { return p.client.Close() }
