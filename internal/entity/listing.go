package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ListingType says which actions a listing offers.
type ListingType string

const (
	ListingTypeBuy  ListingType = "buy"
	ListingTypeRent ListingType = "rent"
	ListingTypeBoth ListingType = "both"
)

// Valid reports whether t is one of the known listing types.
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeBuy, ListingTypeRent, ListingTypeBoth:
		return true
	}
	return false
}

// Supports reports whether a listing of type t can be transacted with action a.
func (t ListingType) Supports(a Action) bool {
	switch a {
	case ActionBuy:
		return t == ListingTypeBuy || t == ListingTypeBoth
	case ActionRent:
		return t == ListingTypeRent || t == ListingTypeBoth
	}
	return false
}

// ListingStatus is the sale/rental state of a listing.
type ListingStatus string

const (
	StatusListed ListingStatus = "listed"
	StatusSold   ListingStatus = "sold"
	StatusRented ListingStatus = "rented"
)

// AdminStatus is the moderation verdict on a listing.
type AdminStatus string

const (
	AdminPending  AdminStatus = "pending"
	AdminAccepted AdminStatus = "accepted"
	AdminDeclined AdminStatus = "declined"
)

// Listing is a seller's offer of a good for sale, rent, or both.
//
// Name, Description, AgeLabel, ListingType, prices, Seller and ListedAt are
// fixed at creation. Status, AdminStatus, Deleted and Revenue change only
// through Apply.
type Listing struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	AgeLabel    string           `json:"ageLabel"`
	ListingType ListingType      `json:"listingType"`
	BuyPrice    *decimal.Decimal `json:"buyPrice,omitempty"`
	RentPrice   *decimal.Decimal `json:"rentPrice,omitempty"` // per day
	Image       string           `json:"image,omitempty"`
	Seller      string           `json:"seller"`
	Status      ListingStatus    `json:"status"`
	AdminStatus AdminStatus      `json:"adminStatus"`
	Deleted     bool             `json:"deleted"`
	Revenue     decimal.Decimal  `json:"revenue"`
	ListedAt    time.Time        `json:"listedAt"`
}

// UnmarshalJSON treats a missing adminStatus as pending.
func (l *Listing) UnmarshalJSON(b []byte) error {
	type plain Listing
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.AdminStatus == "" {
		p.AdminStatus = AdminPending
	}
	*l = Listing(p)
	return nil
}

// IsPendingApproval: listed, not deleted and not yet accepted.
func (l Listing) IsPendingApproval() bool {
	return l.Status == StatusListed && !l.Deleted && l.AdminStatus != AdminAccepted
}

// IsAccepted: accepted and not deleted, whatever the sale status.
func (l Listing) IsAccepted() bool {
	return l.AdminStatus == AdminAccepted && !l.Deleted
}

// IsDeclined: declined by an admin, which always soft deletes.
func (l Listing) IsDeclined() bool {
	return l.Deleted && l.AdminStatus == AdminDeclined
}

// IsPurchasable is the buyer marketplace predicate.
func (l Listing) IsPurchasable() bool {
	return l.Status == StatusListed && !l.Deleted && l.AdminStatus == AdminAccepted
}

// IneligibleReason returns why l is not purchasable, or "" if it is.
func (l Listing) IneligibleReason() string {
	switch {
	case l.Deleted:
		return "listing is deleted"
	case l.Status != StatusListed:
		return fmt.Sprintf("listing is already %s", l.Status)
	case l.AdminStatus == AdminDeclined:
		return "listing was declined"
	case l.AdminStatus != AdminAccepted:
		return "listing is awaiting approval"
	}
	return ""
}

// PriceFor returns the unit price for an action, if the listing has one.
func (l Listing) PriceFor(a Action) (decimal.Decimal, bool) {
	var p *decimal.Decimal
	switch a {
	case ActionBuy:
		p = l.BuyPrice
	case ActionRent:
		p = l.RentPrice
	}
	if p == nil {
		return decimal.Zero, false
	}
	return *p, true
}

// Apply mutates the listing according to the event. It is the only mutation
// path for a listing after creation.
func (l *Listing) Apply(e Event) error {
	switch e := e.(type) {
	case ListingCreated:
		*l = e.Listing
	case ListingDeleted:
		l.Deleted = true
	case ListingRestored:
		l.Deleted = false
	case ListingAccepted:
		l.AdminStatus = AdminAccepted
		l.Deleted = false
	case ListingDeclined:
		l.AdminStatus = AdminDeclined
		l.Deleted = true
	case ListingSold:
		if l.Status != StatusListed {
			return fmt.Errorf("listing %s cannot be sold from status %s", l.ID, l.Status)
		}
		l.Status = StatusSold
		l.Revenue = l.Revenue.Add(e.Price)
	case ListingRented:
		if l.Status != StatusListed {
			return fmt.Errorf("listing %s cannot be rented from status %s", l.ID, l.Status)
		}
		l.Status = StatusRented
		l.Revenue = l.Revenue.Add(e.Price)
	default:
		return fmt.Errorf("unknown event type for Listing: %s", e.EventType())
	}
	return nil
}

// Rehydrate rebuilds a listing from its stored event stream.
func Rehydrate(records []EventStoreRecord) (Listing, error) {
	var l Listing
	for _, rec := range records {
		e, err := DecodeListingEvent(rec)
		if err != nil {
			return Listing{}, err
		}
		if err := l.Apply(e); err != nil {
			return Listing{}, fmt.Errorf("failed to apply listing event from stream: %w", err)
		}
	}
	return l, nil
}
