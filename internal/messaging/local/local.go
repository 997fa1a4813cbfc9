// Package local fans change signals out to in-process subscribers over a
// watermill gochannel pub/sub.
package local

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
)

const topic = "marketplace.signals"

// Bus is an in-process Publisher and Subscriber.
type Bus struct {
	pubSub *gochannel.GoChannel
}

// NewBus creates a Bus that logs through logger.
func NewBus(logger *slog.Logger) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)
	return &Bus{pubSub: pubSub}
}

func (b *Bus) Publish(ctx context.Context, signal messaging.Signal) error {
	payload, err := signal.Encode()
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", signal.Kind, err)
	}
	return nil
}

// Consume only sees signals published after it has subscribed.
func (b *Bus) Consume(ctx context.Context, handler func(ctx context.Context, signal messaging.Signal) error) {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Failed to subscribe", "topic", topic, "err", err)
		return
	}

	for msg := range messages {
		signal, err := messaging.DecodeSignal(msg.Payload)
		if err != nil {
			slog.Error("Dropping malformed signal", "topic", topic, "err", err)
			msg.Ack()
			continue
		}
		if err := handler(ctx, signal); err != nil {
			slog.Error("Error handling message", "topic", topic, "err", err)
		}
		msg.Ack()
	}
	slog.Info("Consumer shutting down", "topic", topic)
}

// Close stops every subscription.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
