package bus

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// EventChannel is the per-user dashboard channel name.
func EventChannel(userID string) string {
	return fmt.Sprintf("user:%s:events", userID)
}

// ControlChannel carries commands (KILL) for a follower's execution agent.
func ControlChannel(userID string) string {
	return fmt.Sprintf("user:%s:control", userID)
}

// Bus is the realtime fan-out layer over Redis Pub/Sub. Events reach only
// currently connected subscribers; nothing is persisted or replayed, and late
// subscribers reconcile by polling.
type Bus struct {
	client *redis.Client
}

func New(client *redis.Client) *Bus {
	return &Bus{client: client}
}

// Publish delivers one event to every current subscriber of the channel.
func (b *Bus) Publish(ctx context.Context, channel string, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", channel, err)
	}
	return nil
}

// Subscription is one live channel subscription. Close it when the consumer
// disconnects.
type Subscription struct {
	pubsub *redis.PubSub
}

// Subscribe opens a subscription on the channel. Messages are raw JSON
// envelopes ready to write to a stream connection.
func (b *Bus) Subscribe(ctx context.Context, channel string) *Subscription {
	return &Subscription{pubsub: b.client.Subscribe(ctx, channel)}
}

// Messages exposes the payload stream. The channel closes when the
// subscription is closed or the connection drops.
func (s *Subscription) Messages() <-chan *redis.Message {
	return s.pubsub.Channel()
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
