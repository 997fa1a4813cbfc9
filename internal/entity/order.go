package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is what a buyer does with a listing.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionRent Action = "rent"
)

// RentalStatus is derived from RentEnd against the current time.
type RentalStatus string

const (
	RentalActive RentalStatus = "active"
	RentalEnded  RentalStatus = "ended"
)

// Order is the immutable record of a completed purchase or rental.
//
// BuyerName, SellerBusinessName and ListingName are snapshots taken when the
// order is placed. They are not re-synced if the source record changes.
type Order struct {
	OrderID            string          `json:"orderId"`
	ListingID          string          `json:"listingId"`
	ListingName        string          `json:"listingName"`
	BuyerName          string          `json:"buyerName"`
	SellerBusinessName string          `json:"sellerBusinessName"`
	Action             Action          `json:"action"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity,omitempty"`
	RentDays           int             `json:"rentDays,omitempty"`
	RentStart          *time.Time      `json:"rentStart,omitempty"`
	RentEnd            *time.Time      `json:"rentEnd,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// RentalStatus reports whether a rental is still running at now. The second
// result is false for buy orders.
func (o Order) RentalStatus(now time.Time) (RentalStatus, bool) {
	if o.Action != ActionRent || o.RentEnd == nil {
		return "", false
	}
	if o.RentEnd.After(now) {
		return RentalActive, true
	}
	return RentalEnded, true
}

// PerDayPrice is the rental price divided by the rented days.
func (o Order) PerDayPrice() decimal.Decimal {
	if o.RentDays <= 0 {
		return decimal.Zero
	}
	return o.Price.Div(decimal.NewFromInt(int64(o.RentDays)))
}
