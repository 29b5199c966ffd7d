package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends events to a stream. Services depend on this
// interface so tests can record events without Redis.
type Publisher interface {
	// Publish returns the message ID assigned by the broker.
	Publish(ctx context.Context, stream string, event Event) (messageID string, err error)
}

// RedisPublisher writes events to a Redis Stream with XADD.
type RedisPublisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client}
}

// Publish appends the event with an auto-generated ("*") message ID,
// so IDs carry the broker's timestamp-sequence ordering.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event Event) (string, error) {
	start := time.Now()

	values, err := event.ToMap()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		log.Printf("[Publisher] Publish FAILED: stream=%s type=%s err=%v", stream, event.Type, err)
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	log.Printf("[Publisher] Publish OK: stream=%s type=%s msgID=%s duration=%v",
		stream, event.Type, messageID, time.Since(start))
	return messageID, nil
}
