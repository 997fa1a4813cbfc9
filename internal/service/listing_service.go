package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

// CreateListingInput is a seller's new listing. Prices are decimal strings;
// the one that does not apply to ListingType is ignored.
type CreateListingInput struct {
	Name        string
	Description string
	AgeLabel    string
	ListingType entity.ListingType
	BuyPrice    string
	RentPrice   string
	Image       string
	Seller      string
}

// ListingService manages listing creation, soft deletion and the views over
// the listing set.
type ListingService struct {
	core *Core
}

func NewListingService(core *Core) *ListingService {
	return &ListingService{core: core}
}

// CreateListing validates in and stores a new listing in status listed,
// awaiting approval.
func (s *ListingService) CreateListing(ctx context.Context, in CreateListingInput) (entity.Listing, error) {
	l, err := newListing(in)
	if err != nil {
		return entity.Listing{}, err
	}

	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		listings, err := repos.Listings.LoadListings(ctx)
		if err != nil {
			return &entity.PersistenceError{Op: "load listings", Err: err}
		}
		l.ID = c.nextListingID(listings)
		l.ListedAt = c.now()

		listings = append(listings, l)
		if err := saveListings(ctx, repos.Listings, listings); err != nil {
			return err
		}
		l = listings[len(listings)-1]
		return appendEvent(ctx, repos.Events, l.ID, entity.ListingCreated{Listing: l})
	})
	if err != nil {
		return entity.Listing{}, err
	}

	slog.Info("Listing created", "listing_id", l.ID, "type", l.ListingType, "seller", l.Seller)
	c.notify(ctx, messaging.ListingsChanged)
	return l, nil
}

func newListing(in CreateListingInput) (entity.Listing, error) {
	l := entity.Listing{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		AgeLabel:    strings.TrimSpace(in.AgeLabel),
		ListingType: in.ListingType,
		Image:       in.Image,
		Seller:      strings.TrimSpace(in.Seller),
		Status:      entity.StatusListed,
		AdminStatus: entity.AdminPending,
		Revenue:     decimal.Zero,
	}

	switch {
	case l.Name == "":
		return l, &entity.ValidationError{Field: "name", Reason: "is required"}
	case l.Description == "":
		return l, &entity.ValidationError{Field: "description", Reason: "is required"}
	case l.AgeLabel == "":
		return l, &entity.ValidationError{Field: "ageLabel", Reason: "is required"}
	case !l.ListingType.Valid():
		return l, &entity.ValidationError{Field: "listingType", Reason: fmt.Sprintf("must be buy, rent or both, got %q", in.ListingType)}
	}

	var err error
	if l.ListingType.Supports(entity.ActionBuy) {
		if l.BuyPrice, err = parsePrice("buyPrice", in.BuyPrice); err != nil {
			return l, err
		}
	}
	if l.ListingType.Supports(entity.ActionRent) {
		if l.RentPrice, err = parsePrice("rentPrice", in.RentPrice); err != nil {
			return l, err
		}
	}
	return l, nil
}

func parsePrice(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &entity.ValidationError{Field: field, Reason: "is required"}
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &entity.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if p.IsNegative() {
		return nil, &entity.ValidationError{Field: field, Reason: "must not be negative"}
	}
	return &p, nil
}

// SoftDelete hides a listing. Deleting a deleted listing is a no-op.
func (s *ListingService) SoftDelete(ctx context.Context, id string) (entity.Listing, error) {
	return s.core.mutateListing(ctx, id, func(l entity.Listing, at time.Time) (entity.Event, error) {
		if l.Deleted {
			return nil, nil
		}
		return entity.ListingDeleted{ListingID: id, At: at}, nil
	})
}

// Restore clears the deleted flag. It does not touch the admin status, so a
// restored declined listing is still declined. Restoring a live listing is a
// no-op.
func (s *ListingService) Restore(ctx context.Context, id string) (entity.Listing, error) {
	return s.core.mutateListing(ctx, id, func(l entity.Listing, at time.Time) (entity.Event, error) {
		if !l.Deleted {
			return nil, nil
		}
		return entity.ListingRestored{ListingID: id, At: at}, nil
	})
}

// Get returns one listing.
func (s *ListingService) Get(ctx context.Context, id string) (entity.Listing, error) {
	listings, err := s.load(ctx)
	if err != nil {
		return entity.Listing{}, err
	}
	i := indexOf(listings, id)
	if i < 0 {
		return entity.Listing{}, &entity.NotFoundError{ID: id}
	}
	return listings[i], nil
}

// History replays the listing's event stream.
func (s *ListingService) History(ctx context.Context, id string) ([]entity.EventStoreRecord, entity.Listing, error) {
	records, err := s.core.store.Repositories().Events.LoadEvents(ctx, id)
	if err != nil {
		return nil, entity.Listing{}, fmt.Errorf("failed to load listing history: %w", err)
	}
	if len(records) == 0 {
		return nil, entity.Listing{}, &entity.NotFoundError{ID: id}
	}
	l, err := entity.Rehydrate(records)
	if err != nil {
		return nil, entity.Listing{}, fmt.Errorf("failed to rehydrate listing: %w", err)
	}
	return records, l, nil
}

// PendingApproval lists what the admin still has to review.
func (s *ListingService) PendingApproval(ctx context.Context) ([]entity.Listing, error) {
	return s.view(ctx, entity.Listing.IsPendingApproval)
}

// Accepted includes accepted listings that have since been sold or rented.
func (s *ListingService) Accepted(ctx context.Context) ([]entity.Listing, error) {
	return s.view(ctx, entity.Listing.IsAccepted)
}

func (s *ListingService) Declined(ctx context.Context) ([]entity.Listing, error) {
	return s.view(ctx, entity.Listing.IsDeclined)
}

// Marketplace lists what buyers can transact with.
func (s *ListingService) Marketplace(ctx context.Context, f entity.MarketFilter) ([]entity.Listing, error) {
	listings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return entity.MarketplaceView(listings, f), nil
}

// SellerListings is the seller's management list.
func (s *ListingService) SellerListings(ctx context.Context, f entity.ManageFilter) ([]entity.Listing, error) {
	return s.view(ctx, f.Matches)
}

func (s *ListingService) view(ctx context.Context, keep func(entity.Listing) bool) ([]entity.Listing, error) {
	listings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return entity.Filter(listings, keep), nil
}

func (s *ListingService) load(ctx context.Context) ([]entity.Listing, error) {
	listings, err := s.core.store.Repositories().Listings.LoadListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return listings, nil
}
