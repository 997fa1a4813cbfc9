package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging/local"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging/redis"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository/bolt"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository/mongo"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository/postgres"
)

func buildStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.Store {
	case "memory":
		return memory.New(), nil
	case "bolt":
		return bolt.New(cfg.BoltPath, cfg.BoltMaxRecordBytes)
	case "postgres":
		db, err := postgres.InitDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	case "mongo":
		client, err := mongo.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return mongo.NewStore(client, cfg.MongoDB), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// buildMessaging returns the change publisher, a subscriber for the live
// dashboard and a close func.
func buildMessaging(cfg config.Config, logger *slog.Logger) (messaging.Publisher, messaging.Subscriber, func() error, error) {
	switch cfg.Notifier {
	case "local":
		bus := local.NewBus(logger)
		return bus, bus, bus.Close, nil
	case "kafka":
		pub, sub, closeFn := kafka.NewKafkaBroker(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup())
		return pub, sub, closeFn, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		pub, sub := redis.NewBroker(client, cfg.RedisChannel)
		return pub, sub, client.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
}

// consumerGroup is per host so every instance sees every signal.
func consumerGroup() string {
	host, err := os.Hostname()
	if err != nil {
		host = "local"
	}
	return "marketplace-dashboard-" + host
}
