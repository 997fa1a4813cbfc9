// Package mongo provides a MongoDB-backed Store. Prices are stored as
// decimal strings so no precision is lost in BSON doubles.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

// maxDocumentBytes is the BSON document limit enforced by the server.
const maxDocumentBytes = 16 * 1024 * 1024

// NewClient connects to uri and pings the primary.
func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	slog.Info("Connected to MongoDB")
	return client, nil
}

// Store is a repository.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore uses the named database on client.
func NewStore(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Listings: &listingRepository{coll: s.db.Collection("listings")},
		Orders:   &orderRepository{coll: s.db.Collection("orders")},
		Events:   &eventStore{coll: s.db.Collection("events")},
	}
}

// Atomic runs fn in a multi-document transaction. The server must be a
// replica set or sharded cluster.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s.Repositories())
	})
	return err
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
