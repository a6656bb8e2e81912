package callbacks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Notifier fans recorded callbacks out to other consumers. It is never used
// as storage.
type Notifier interface {
	Notify(ctx context.Context, id string, payload Payload) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, Payload) error {
	return nil
}

type Notification struct {
	ID      string  `json:"id"`
	Payload Payload `json:"payload"`
}

// RedisNotifier publishes every callback on a Pub/Sub channel
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, id string, payload Payload) error {
	msg, err := json.Marshal(Notification{ID: id, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed marshalling callback notification: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, msg).Err(); err != nil {
		return fmt.Errorf("failed publishing callback %s: %w", id, err)
	}
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
