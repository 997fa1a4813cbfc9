package repository

import (
	"context"
	"errors"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
)

// ErrCapacity is returned, possibly wrapped, when a store refuses a write
// because it is over its size limit. Callers may shrink the payload and retry.
var ErrCapacity = errors.New("store capacity exceeded")

// ListingRepository handles persistence for Listings. It holds no business
// rules.
type ListingRepository interface {
	LoadListings(ctx context.Context) ([]entity.Listing, error)
	// SaveListings persists the whole listing set.
	SaveListings(ctx context.Context, listings []entity.Listing) error
}

// OrderRepository is the append-only order ledger.
type OrderRepository interface {
	LoadOrders(ctx context.Context) ([]entity.Order, error)
	AppendOrder(ctx context.Context, order entity.Order) error
}

// EventStore handles appending and loading events for a listing stream.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}

// Repositories groups the stores that share one unit of work.
type Repositories struct {
	Listings ListingRepository
	Orders   OrderRepository
	Events   EventStore
}

// UnitOfWork runs fn against repositories whose writes commit together or
// not at all. The ctx passed to fn must be used for every call made inside.
type UnitOfWork interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is a complete persistence backend.
type Store interface {
	UnitOfWork
	Repositories() Repositories
	Close() error
}
