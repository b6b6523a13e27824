package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "giru:activity"

// RedisPublisher broadcasts activity events over a pub/sub channel
// consumed by the assistant's websocket layer.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(redisURL, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	if channel == "" {
		channel = defaultChannel
	}

	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
