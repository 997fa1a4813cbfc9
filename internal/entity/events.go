package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ListingCreated is emitted when a seller lists a new good.
type ListingCreated struct {
	Listing Listing `json:"listing"`
}

func (e ListingCreated) EventType() string { return "ListingCreated" }

// ListingDeleted is emitted when a listing is soft deleted.
type ListingDeleted struct {
	ListingID string    `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingDeleted) EventType() string { return "ListingDeleted" }

// ListingRestored is emitted when a soft-deleted listing is restored.
type ListingRestored struct {
	ListingID string    `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingRestored) EventType() string { return "ListingRestored" }

// ListingAccepted is emitted when an admin accepts a listing.
type ListingAccepted struct {
	ListingID string    `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingAccepted) EventType() string { return "ListingAccepted" }

// ListingDeclined is emitted when an admin declines a listing.
type ListingDeclined struct {
	ListingID string    `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingDeclined) EventType() string { return "ListingDeclined" }

// ListingSold is emitted when a buy order completes against a listing.
type ListingSold struct {
	ListingID string          `json:"listing_id"`
	OrderID   string          `json:"order_id"`
	Price     decimal.Decimal `json:"price"`
	At        time.Time       `json:"at"`
}

func (e ListingSold) EventType() string { return "ListingSold" }

// ListingRented is emitted when a rent order completes against a listing.
type ListingRented struct {
	ListingID string          `json:"listing_id"`
	OrderID   string          `json:"order_id"`
	Price     decimal.Decimal `json:"price"`
	At        time.Time       `json:"at"`
}

func (e ListingRented) EventType() string { return "ListingRented" }

// DecodeListingEvent turns a stored record back into its typed event.
func DecodeListingEvent(rec EventStoreRecord) (Event, error) {
	var (
		e   Event
		err error
	)
	switch rec.EventType {
	case "ListingCreated":
		var v ListingCreated
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case "ListingDeleted":
		var v ListingDeleted
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case "ListingRestored":
		var v ListingRestored
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case "ListingAccepted":
		var v ListingAccepted
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case "ListingDeclined":
		var v ListingDeclined
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case "ListingSold":
		var v ListingSold
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case "ListingRented":
		var v ListingRented
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	default:
		return nil, fmt.Errorf("unknown event type in listing stream: %s", rec.EventType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", rec.EventType, err)
	}
	return e, nil
}
