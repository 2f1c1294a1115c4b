package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultQueueKey is the Redis list events are appended to.
const DefaultQueueKey = "fleetfuel:transaction_events"

// RedisPublisher appends JSON events to a Redis list consumed by downstream workers.
type RedisPublisher struct {
	client redis.Cmdable
	key    string
}

// NewRedisPublisher creates a publisher writing to key, or DefaultQueueKey when key is empty.
func NewRedisPublisher(client redis.Cmdable, key string) *RedisPublisher {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisPublisher{client: client, key: key}
}

// Publish pushes the event onto the tail of the queue.
func (p *RedisPublisher) Publish(ctx context.Context, event TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish %s: failed to marshal event: %w", event.Type, err)
	}
	if err := p.client.RPush(ctx, p.key, data).Err(); err != nil {
		return fmt.Errorf("publish %s: failed to push to %s: %w", event.Type, p.key, err)
	}
	return nil
}
