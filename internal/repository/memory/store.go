// Package memory provides an in-process Store, used by tests and by the
// "memory" backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

// Option configures a Store.
type Option func(*Store)

// WithCapacity limits the JSON-encoded size of listings plus orders, like a
// browser storage quota. Writes past the limit fail with
// repository.ErrCapacity. Zero means unlimited.
func WithCapacity(bytes int) Option {
	return func(s *Store) { s.capacity = bytes }
}

type state struct {
	listings []entity.Listing
	orders   []entity.Order
	events   map[string][]entity.EventStoreRecord
}

func (st state) clone() state {
	events := make(map[string][]entity.EventStoreRecord, len(st.events))
	for k, v := range st.events {
		events[k] = slices.Clone(v)
	}
	return state{
		listings: slices.Clone(st.listings),
		orders:   slices.Clone(st.orders),
		events:   events,
	}
}

// Store keeps every record in memory behind a single mutex.
type Store struct {
	mu       sync.Mutex
	st       state
	capacity int
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{st: state{events: map[string][]entity.EventStoreRecord{}}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repositories returns repositories that each take the store lock per call.
// Do not call them from inside Atomic; use the repositories passed to fn.
func (s *Store) Repositories() repository.Repositories {
	v := &lockedView{s: s}
	return repository.Repositories{Listings: v, Orders: v, Events: v}
}

// Atomic runs fn on a copy of the state and swaps it in only if fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &view{st: s.st.clone(), capacity: s.capacity}
	if err := fn(ctx, repository.Repositories{Listings: tx, Orders: tx, Events: tx}); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// view implements the repositories over a state value without locking.
type view struct {
	st       state
	capacity int
}

func (v *view) LoadListings(ctx context.Context) ([]entity.Listing, error) {
	return slices.Clone(v.st.listings), nil
}

func (v *view) SaveListings(ctx context.Context, listings []entity.Listing) error {
	next := v.st
	next.listings = slices.Clone(listings)
	if err := v.checkCapacity(next); err != nil {
		return err
	}
	v.st = next
	return nil
}

func (v *view) LoadOrders(ctx context.Context) ([]entity.Order, error) {
	return slices.Clone(v.st.orders), nil
}

func (v *view) AppendOrder(ctx context.Context, order entity.Order) error {
	next := v.st
	next.orders = append(slices.Clone(v.st.orders), order)
	if err := v.checkCapacity(next); err != nil {
		return err
	}
	v.st = next
	return nil
}

func (v *view) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	stream := v.st.events[streamID]
	if expectedVersion >= 0 && len(stream) != expectedVersion {
		return fmt.Errorf("concurrency exception: expected version %d, got %d", expectedVersion, len(stream))
	}

	now := time.Now()
	version := len(stream)
	for _, event := range events {
		version++
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		stream = append(stream, entity.EventStoreRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    version,
			EventType:  event.EventType(),
			Payload:    payload,
			CreatedAt:  now,
		})
	}
	v.st.events[streamID] = stream
	return nil
}

func (v *view) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	return slices.Clone(v.st.events[streamID]), nil
}

func (v *view) checkCapacity(st state) error {
	if v.capacity <= 0 {
		return nil
	}
	lb, err := json.Marshal(st.listings)
	if err != nil {
		return fmt.Errorf("failed to marshal listings: %w", err)
	}
	ob, err := json.Marshal(st.orders)
	if err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}
	if size := len(lb) + len(ob); size > v.capacity {
		return fmt.Errorf("%w: %d bytes over limit of %d", repository.ErrCapacity, size, v.capacity)
	}
	return nil
}

// lockedView serializes each call on the store mutex.
type lockedView struct {
	s *Store
}

func (l *lockedView) do(fn func(v *view) error) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	v := &view{st: l.s.st, capacity: l.s.capacity}
	if err := fn(v); err != nil {
		return err
	}
	l.s.st = v.st
	return nil
}

func (l *lockedView) LoadListings(ctx context.Context) (out []entity.Listing, err error) {
	err = l.do(func(v *view) error {
		out, err = v.LoadListings(ctx)
		return err
	})
	return out, err
}

func (l *lockedView) SaveListings(ctx context.Context, listings []entity.Listing) error {
	return l.do(func(v *view) error { return v.SaveListings(ctx, listings) })
}

func (l *lockedView) LoadOrders(ctx context.Context) (out []entity.Order, err error) {
	err = l.do(func(v *view) error {
		out, err = v.LoadOrders(ctx)
		return err
	})
	return out, err
}

func (l *lockedView) AppendOrder(ctx context.Context, order entity.Order) error {
	return l.do(func(v *view) error { return v.AppendOrder(ctx, order) })
}

func (l *lockedView) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	return l.do(func(v *view) error { return v.SaveEvents(ctx, streamID, streamType, expectedVersion, events) })
}

func (l *lockedView) LoadEvents(ctx context.Context, streamID string) (out []entity.EventStoreRecord, err error) {
	err = l.do(func(v *view) error {
		out, err = v.LoadEvents(ctx, streamID)
		return err
	})
	return out, err
}
