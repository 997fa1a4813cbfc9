// Package bolt provides a BoltDB-backed Store.
//
// Every listing is one JSON value keyed by its id. Orders are keyed by the
// bucket sequence, so a ForEach walks the ledger in append order. Each
// listing event stream is a nested bucket keyed by version.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

const (
	listingsBucket = "listings"
	ordersBucket   = "orders"
	eventsBucket   = "events"
)

// Store wraps a BoltDB database.
type Store struct {
	db             *bolt.DB
	maxRecordBytes int
}

// New opens (or creates) a BoltDB database at path and ensures the buckets
// exist. maxRecordBytes caps the encoded size of a single listing or order;
// zero means unlimited.
func New(path string, maxRecordBytes int) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{listingsBucket, ordersBucket, eventsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db, maxRecordBytes: maxRecordBytes}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Repositories returns repositories that run each call in its own bolt
// transaction.
func (s *Store) Repositories() repository.Repositories {
	r := &repos{s: s}
	return repository.Repositories{Listings: r, Orders: r, Events: r}
}

// Atomic runs fn inside one read-write bolt transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		r := &txRepos{tx: tx, maxRecordBytes: s.maxRecordBytes}
		return fn(ctx, repository.Repositories{Listings: r, Orders: r, Events: r})
	})
}

// repos opens a transaction per call.
type repos struct {
	s *Store
}

func (r *repos) view(fn func(t *txRepos) error) error {
	return r.s.db.View(func(tx *bolt.Tx) error {
		return fn(&txRepos{tx: tx, maxRecordBytes: r.s.maxRecordBytes})
	})
}

func (r *repos) update(fn func(t *txRepos) error) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		return fn(&txRepos{tx: tx, maxRecordBytes: r.s.maxRecordBytes})
	})
}

func (r *repos) LoadListings(ctx context.Context) (out []entity.Listing, err error) {
	err = r.view(func(t *txRepos) error {
		out, err = t.LoadListings(ctx)
		return err
	})
	return out, err
}

func (r *repos) SaveListings(ctx context.Context, listings []entity.Listing) error {
	return r.update(func(t *txRepos) error { return t.SaveListings(ctx, listings) })
}

func (r *repos) LoadOrders(ctx context.Context) (out []entity.Order, err error) {
	err = r.view(func(t *txRepos) error {
		out, err = t.LoadOrders(ctx)
		return err
	})
	return out, err
}

func (r *repos) AppendOrder(ctx context.Context, order entity.Order) error {
	return r.update(func(t *txRepos) error { return t.AppendOrder(ctx, order) })
}

func (r *repos) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	return r.update(func(t *txRepos) error {
		return t.SaveEvents(ctx, streamID, streamType, expectedVersion, events)
	})
}

func (r *repos) LoadEvents(ctx context.Context, streamID string) (out []entity.EventStoreRecord, err error) {
	err = r.view(func(t *txRepos) error {
		out, err = t.LoadEvents(ctx, streamID)
		return err
	})
	return out, err
}

// txRepos implements the repositories against an open transaction.
type txRepos struct {
	tx             *bolt.Tx
	maxRecordBytes int
}

func (t *txRepos) LoadListings(ctx context.Context) ([]entity.Listing, error) {
	items := []entity.Listing{}
	err := t.tx.Bucket([]byte(listingsBucket)).ForEach(func(k, v []byte) error {
		var l entity.Listing
		if err := json.Unmarshal(v, &l); err != nil {
			return fmt.Errorf("failed to decode listing %s: %w", k, err)
		}
		items = append(items, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByListedAt(items)
	return items, nil
}

// SaveListings replaces the listing set: keys missing from listings are
// removed.
func (t *txRepos) SaveListings(ctx context.Context, listings []entity.Listing) error {
	b := t.tx.Bucket([]byte(listingsBucket))

	keep := make(map[string]bool, len(listings))
	for _, l := range listings {
		data, err := t.encode(l)
		if err != nil {
			return fmt.Errorf("listing %s: %w", l.ID, err)
		}
		if err := b.Put([]byte(l.ID), data); err != nil {
			return fmt.Errorf("failed to put listing %s: %w", l.ID, err)
		}
		keep[l.ID] = true
	}

	var stale [][]byte
	err := b.ForEach(func(k, _ []byte) error {
		if !keep[string(k)] {
			stale = append(stale, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("failed to delete listing %s: %w", k, err)
		}
	}
	return nil
}

func (t *txRepos) LoadOrders(ctx context.Context) ([]entity.Order, error) {
	orders := []entity.Order{}
	err := t.tx.Bucket([]byte(ordersBucket)).ForEach(func(k, v []byte) error {
		var o entity.Order
		if err := json.Unmarshal(v, &o); err != nil {
			return fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (t *txRepos) AppendOrder(ctx context.Context, order entity.Order) error {
	b := t.tx.Bucket([]byte(ordersBucket))
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate order sequence: %w", err)
	}
	data, err := t.encode(order)
	if err != nil {
		return fmt.Errorf("order %s: %w", order.OrderID, err)
	}
	return b.Put(itob(seq), data)
}

func (t *txRepos) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	stream, err := t.tx.Bucket([]byte(eventsBucket)).CreateBucketIfNotExists([]byte(streamID))
	if err != nil {
		return fmt.Errorf("failed to open stream %s: %w", streamID, err)
	}

	currentVersion := 0
	if k, _ := stream.Cursor().Last(); k != nil {
		currentVersion = int(binary.BigEndian.Uint64(k))
	}
	if expectedVersion >= 0 && currentVersion != expectedVersion {
		return fmt.Errorf("concurrency exception: expected version %d, got %d", expectedVersion, currentVersion)
	}

	now := time.Now()
	version := currentVersion
	for _, event := range events {
		version++
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		data, err := json.Marshal(entity.EventStoreRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    version,
			EventType:  event.EventType(),
			Payload:    payload,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		if err := stream.Put(itob(uint64(version)), data); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (t *txRepos) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	stream := t.tx.Bucket([]byte(eventsBucket)).Bucket([]byte(streamID))
	if stream == nil {
		return nil, nil
	}
	var records []entity.EventStoreRecord
	err := stream.ForEach(func(k, v []byte) error {
		var rec entity.EventStoreRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("failed to decode event record: %w", err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load events for stream %s: %w", streamID, err)
	}
	return records, nil
}

func (t *txRepos) encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if t.maxRecordBytes > 0 && len(data) > t.maxRecordBytes {
		return nil, fmt.Errorf("%w: record is %d bytes, limit %d", repository.ErrCapacity, len(data), t.maxRecordBytes)
	}
	return data, nil
}

func sortByListedAt(items []entity.Listing) {
	slices.SortStableFunc(items, func(a, b entity.Listing) int {
		if c := a.ListedAt.Compare(b.ListedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
