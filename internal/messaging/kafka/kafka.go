package kafka

import (
	"context"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
	kafkaGo "github.com/segmentio/kafka-go"
)

type kafkaBroker struct {
	brokers []string
	topic   string
	groupID string
	writer  *kafkaGo.Writer
}

// NewKafkaBroker creates a Kafka publisher and subscriber on one topic.
// Every process should use its own groupID so each one sees every signal.
func NewKafkaBroker(brokers []string, topic, groupID string) (messaging.Publisher, messaging.Subscriber, func() error) {
	kb := &kafkaBroker{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		writer: &kafkaGo.Writer{
			Addr:     kafkaGo.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkaGo.LeastBytes{},
		},
	}
	return kb, kb, kb.writer.Close
}

func (k *kafkaBroker) Publish(ctx context.Context, signal messaging.Signal) error {
	payload, err := signal.Encode()
	if err != nil {
		return err
	}

	return k.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(signal.Kind),
		Value: payload,
	})
}

func (k *kafkaBroker) Consume(ctx context.Context, handler func(ctx context.Context, signal messaging.Signal) error) {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.brokers,
		Topic:   k.topic,
		GroupID: k.groupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Consumer shutting down", "topic", k.topic)
				return
			}
			slog.Error("Error reading message", "topic", k.topic, "err", err)
			continue
		}

		signal, err := messaging.DecodeSignal(msg.Value)
		if err != nil {
			slog.Error("Dropping malformed signal", "topic", k.topic, "err", err)
			continue
		}
		if err := handler(ctx, signal); err != nil {
			slog.Error("Error handling message", "topic", k.topic, "err", err)
		}
	}
}
