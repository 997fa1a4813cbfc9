package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

// maxOrderIDAttempts bounds regeneration when a new order id collides.
const maxOrderIDAttempts = 8

// PurchaseRequest is a buyer's buy or rent of one listing. Quantity applies to
// buys; RentDays and RentStart to rentals.
type PurchaseRequest struct {
	Action    entity.Action
	BuyerName string
	Quantity  int
	RentDays  int
	RentStart time.Time
}

// TransactionService turns purchase requests into orders.
type TransactionService struct {
	core *Core
}

func NewTransactionService(core *Core) *TransactionService {
	return &TransactionService{core: core}
}

// Purchase checks, in order, that the listing exists, is purchasable, offers
// the action and that the quantity or rent days are positive. It then stores
// the listing's new status and revenue, the order and the listing event in one
// unit of work. Any failure leaves the store untouched.
func (s *TransactionService) Purchase(ctx context.Context, listingID string, req PurchaseRequest) (entity.Order, error) {
	slog.Info("Service: Placing order", "listing_id", listingID, "action", req.Action)

	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()

	var order entity.Order
	err := c.store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		listings, err := repos.Listings.LoadListings(ctx)
		if err != nil {
			return &entity.PersistenceError{Op: "load listings", Err: err}
		}
		i := indexOf(listings, listingID)
		if i < 0 {
			return &entity.NotFoundError{ID: listingID}
		}
		l := listings[i]

		if reason := l.IneligibleReason(); reason != "" {
			return &entity.NotEligibleError{ID: listingID, Reason: reason}
		}
		if !l.ListingType.Supports(req.Action) {
			return &entity.UnsupportedActionError{ListingID: listingID, ListingType: l.ListingType, Action: req.Action}
		}

		now := c.now()
		order, err = buildOrder(l, req, now)
		if err != nil {
			return err
		}

		existing, err := repos.Orders.LoadOrders(ctx)
		if err != nil {
			return &entity.PersistenceError{Op: "load orders", Err: err}
		}
		if order.OrderID, err = c.uniqueOrderID(existing); err != nil {
			return err
		}

		var e entity.Event
		switch order.Action {
		case entity.ActionBuy:
			e = entity.ListingSold{ListingID: l.ID, OrderID: order.OrderID, Price: order.Price, At: now}
		case entity.ActionRent:
			e = entity.ListingRented{ListingID: l.ID, OrderID: order.OrderID, Price: order.Price, At: now}
		}
		if err := listings[i].Apply(e); err != nil {
			return err
		}
		if err := saveListings(ctx, repos.Listings, listings); err != nil {
			return err
		}
		if err := repos.Orders.AppendOrder(ctx, order); err != nil {
			return &entity.PersistenceError{Op: "append order", Err: err}
		}
		return appendEvent(ctx, repos.Events, l.ID, e)
	})
	if err != nil {
		return entity.Order{}, err
	}

	slog.Info("Order placed", "order_id", order.OrderID, "listing_id", listingID, "price", order.Price.String())
	c.notify(ctx, messaging.ListingsChanged, messaging.OrdersChanged)
	return order, nil
}

func buildOrder(l entity.Listing, req PurchaseRequest, now time.Time) (entity.Order, error) {
	unit, ok := l.PriceFor(req.Action)
	if !ok {
		return entity.Order{}, &entity.ValidationError{Field: string(req.Action) + "Price", Reason: "listing has no price for this action"}
	}

	o := entity.Order{
		ListingID:          l.ID,
		ListingName:        l.Name,
		BuyerName:          strings.TrimSpace(req.BuyerName),
		SellerBusinessName: l.Seller,
		Action:             req.Action,
		CreatedAt:          now,
	}

	switch req.Action {
	case entity.ActionBuy:
		if req.Quantity < 1 {
			return entity.Order{}, &entity.InvalidQuantityError{Field: "quantity", Value: req.Quantity}
		}
		o.Quantity = req.Quantity
		o.Price = unit.Mul(decimal.NewFromInt(int64(req.Quantity)))
	case entity.ActionRent:
		if req.RentDays < 1 {
			return entity.Order{}, &entity.InvalidQuantityError{Field: "rentDays", Value: req.RentDays}
		}
		if req.RentStart.IsZero() {
			return entity.Order{}, &entity.ValidationError{Field: "rentStart", Reason: "is required"}
		}
		start := req.RentStart
		end := start.AddDate(0, 0, req.RentDays)
		o.RentDays = req.RentDays
		o.RentStart, o.RentEnd = &start, &end
		o.Price = unit.Mul(decimal.NewFromInt(int64(req.RentDays)))
	}
	return o, nil
}

func (c *Core) uniqueOrderID(existing []entity.Order) (string, error) {
	for range maxOrderIDAttempts {
		id := c.nextOrderID()
		taken := slices.ContainsFunc(existing, func(o entity.Order) bool { return o.OrderID == id })
		if !taken {
			return id, nil
		}
		slog.Warn("Order id collision, regenerating", "order_id", id)
	}
	return "", &entity.PersistenceError{
		Op:  "allocate order id",
		Err: fmt.Errorf("no unique id after %d attempts", maxOrderIDAttempts),
	}
}
