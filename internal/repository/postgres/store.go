package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

// Store is a repository.Store backed by Postgres.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an initialized database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Listings: NewListingRepository(s.db),
		Orders:   NewOrderRepository(s.db),
		Events:   NewEventStore(s.db),
	}
}

// Atomic runs fn inside one SQL transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := repository.Repositories{
		Listings: NewListingRepository(tx),
		Orders:   NewOrderRepository(tx),
		Events:   NewEventStore(tx),
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
