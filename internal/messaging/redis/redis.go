// Package redis carries change signals over redis pub/sub, so every process
// sharing a store hears about writes made by the others.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
)

type broker struct {
	client  *goredis.Client
	channel string
}

// NewBroker creates a redis publisher and subscriber on one channel.
func NewBroker(client *goredis.Client, channel string) (messaging.Publisher, messaging.Subscriber) {
	b := &broker{client: client, channel: channel}
	return b, b
}

func (b *broker) Publish(ctx context.Context, signal messaging.Signal) error {
	payload, err := signal.Encode()
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	return nil
}

func (b *broker) Consume(ctx context.Context, handler func(ctx context.Context, signal messaging.Signal) error) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer shutting down", "channel", b.channel)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			signal, err := messaging.DecodeSignal([]byte(msg.Payload))
			if err != nil {
				slog.Error("Dropping malformed signal", "channel", b.channel, "err", err)
				continue
			}
			if err := handler(ctx, signal); err != nil {
				slog.Error("Error handling message", "channel", b.channel, "err", err)
			}
		}
	}
}
