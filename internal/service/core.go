package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Core.
type Option func(*Core)

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(c *Core) { c.now = clock }
}

// WithOrderIDs replaces the random order id generator.
func WithOrderIDs(next func() string) Option {
	return func(c *Core) { c.nextOrderID = next }
}

// Core is what the services share: the store, the change publisher, the
// clock and the writer lock. Every mutating operation holds the lock from its
// first read to its commit, so writes through one Core never interleave.
// Writers in other processes sharing the store are not excluded.
type Core struct {
	store       repository.Store
	publisher   messaging.Publisher
	now         Clock
	nextOrderID func() string

	mu     sync.Mutex
	lastID int64
}

func NewCore(store repository.Store, publisher messaging.Publisher, opts ...Option) *Core {
	if publisher == nil {
		publisher = messaging.Discard{}
	}
	c := &Core{
		store:       store,
		publisher:   publisher,
		now:         time.Now,
		nextOrderID: randomOrderID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// notify publishes change signals after a commit. Failures are logged only:
// the write has already happened.
func (c *Core) notify(ctx context.Context, kinds ...messaging.SignalKind) {
	at := c.now()
	for _, kind := range kinds {
		if err := c.publisher.Publish(ctx, messaging.Signal{Kind: kind, At: at}); err != nil {
			slog.Error("Failed to publish change signal", "kind", kind, "err", err)
		}
	}
}

// nextListingID returns the current unix time in milliseconds as a string,
// bumped past the last issued id and every id in existing.
func (c *Core) nextListingID(existing []entity.Listing) string {
	taken := make(map[string]struct{}, len(existing))
	for _, l := range existing {
		taken[l.ID] = struct{}{}
	}

	id := c.now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	for {
		if _, ok := taken[strconv.FormatInt(id, 10)]; !ok {
			break
		}
		id++
	}
	c.lastID = id
	return strconv.FormatInt(id, 10)
}

const orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomOrderID() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = orderIDAlphabet[rand.IntN(len(orderIDAlphabet))]
	}
	return "#AG-" + string(b)
}

func indexOf(listings []entity.Listing, id string) int {
	return slices.IndexFunc(listings, func(l entity.Listing) bool { return l.ID == id })
}

// saveListings writes the whole set. When the store is over capacity it
// drops images one listing at a time, oldest first, and retries after each.
// listings is updated in place to match what was stored.
func saveListings(ctx context.Context, repo repository.ListingRepository, listings []entity.Listing) error {
	err := repo.SaveListings(ctx, listings)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrCapacity) {
		return &entity.PersistenceError{Op: "save listings", Err: err}
	}

	stripped := slices.Clone(listings)
	for i := range stripped {
		if stripped[i].Image == "" {
			continue
		}
		stripped[i].Image = ""
		slog.Warn("Listing store over capacity, dropping image", "listing_id", stripped[i].ID)

		err = repo.SaveListings(ctx, stripped)
		if err == nil {
			copy(listings, stripped)
			return nil
		}
		if !errors.Is(err, repository.ErrCapacity) {
			return &entity.PersistenceError{Op: "save listings", Err: err}
		}
	}
	return &entity.PersistenceError{Op: "save listings", Err: err}
}

// appendEvent appends e to the listing's stream at the version the stream
// had when it was read in this unit of work.
func appendEvent(ctx context.Context, events repository.EventStore, listingID string, e entity.Event) error {
	records, err := events.LoadEvents(ctx, listingID)
	if err != nil {
		return &entity.PersistenceError{Op: "load listing history", Err: err}
	}
	if err := events.SaveEvents(ctx, listingID, entity.StreamTypeListing, len(records), []entity.Event{e}); err != nil {
		return &entity.PersistenceError{Op: "save " + e.EventType() + " event", Err: err}
	}
	return nil
}

// mutateListing loads the listing set, lets decide pick an event for the
// target listing, applies and persists it together with its event. decide may
// return a nil event to report that nothing needs to change.
func (c *Core) mutateListing(ctx context.Context, id string, decide func(l entity.Listing, at time.Time) (entity.Event, error)) (entity.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		out     entity.Listing
		changed bool
	)
	err := c.store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		listings, err := repos.Listings.LoadListings(ctx)
		if err != nil {
			return &entity.PersistenceError{Op: "load listings", Err: err}
		}
		i := indexOf(listings, id)
		if i < 0 {
			return &entity.NotFoundError{ID: id}
		}

		e, err := decide(listings[i], c.now())
		if err != nil {
			return err
		}
		if e == nil {
			out = listings[i]
			return nil
		}
		if err := listings[i].Apply(e); err != nil {
			return err
		}
		if err := saveListings(ctx, repos.Listings, listings); err != nil {
			return err
		}
		if err := appendEvent(ctx, repos.Events, id, e); err != nil {
			return err
		}
		out, changed = listings[i], true
		return nil
	})
	if err != nil {
		return entity.Listing{}, err
	}
	if changed {
		c.notify(ctx, messaging.ListingsChanged)
	}
	return out, nil
}
