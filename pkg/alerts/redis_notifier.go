package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel alerts are published on when
// no channel is configured.
const DefaultRedisChannel = "queue:alerts"

// RedisNotifier publishes alerts on a Redis pub/sub channel so the host
// platform's dashboards can surface them in real time.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a Redis pub/sub backed notifier.
func NewRedisNotifier(client *redis.Client, channel string) (*RedisNotifier, error) {
	if client == nil {
		return nil, ErrRedisClientNil
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

// Name returns "redis".
func (n *RedisNotifier) Name() string { return "redis" }

// Notify publishes the alert as JSON.
func (n *RedisNotifier) Notify(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert on %q: %w", n.channel, err)
	}
	return nil
}
