package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/analytics"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
)

// SellerReport is the seller dashboard.
type SellerReport struct {
	Summary analytics.Summary        `json:"summary"`
	Revenue analytics.RevenueWindows `json:"revenue"`
}

// Rental is a rent order with its derived figures.
type Rental struct {
	entity.Order
	PerDay decimal.Decimal     `json:"perDay"`
	Status entity.RentalStatus `json:"rentalStatus"`
}

// AnalyticsService reads the store and derives reports. It never writes.
type AnalyticsService struct {
	core *Core
}

func NewAnalyticsService(core *Core) *AnalyticsService {
	return &AnalyticsService{core: core}
}

func (s *AnalyticsService) SellerReport(ctx context.Context) (SellerReport, error) {
	listings, err := s.core.store.Repositories().Listings.LoadListings(ctx)
	if err != nil {
		return SellerReport{}, fmt.Errorf("failed to load listings: %w", err)
	}
	return SellerReport{
		Summary: analytics.Summarize(listings),
		Revenue: analytics.RevenueByWindow(listings, s.core.now()),
	}, nil
}

// OrderVolume is the admin chart for tf.
func (s *AnalyticsService) OrderVolume(ctx context.Context, tf analytics.Timeframe) (analytics.Volume, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return analytics.Volume{}, err
	}
	return analytics.OrderVolume(orders, tf, s.core.now()), nil
}

// Sales lists buy orders, newest first.
func (s *AnalyticsService) Sales(ctx context.Context) ([]entity.Order, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}
	sales := []entity.Order{}
	for _, o := range newestFirst(orders) {
		if o.Action == entity.ActionBuy {
			sales = append(sales, o)
		}
	}
	return sales, nil
}

// Rentals lists rent orders, newest first, with per-day price and status.
func (s *AnalyticsService) Rentals(ctx context.Context) ([]Rental, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}
	now := s.core.now()
	rentals := []Rental{}
	for _, o := range newestFirst(orders) {
		status, ok := o.RentalStatus(now)
		if !ok {
			continue
		}
		rentals = append(rentals, Rental{Order: o, PerDay: o.PerDayPrice(), Status: status})
	}
	return rentals, nil
}

func (s *AnalyticsService) orders(ctx context.Context) ([]entity.Order, error) {
	orders, err := s.core.store.Repositories().Orders.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

// newestFirst orders by createdAt descending, keeping ledger order for ties
// reversed, so the last appended comes first.
func newestFirst(orders []entity.Order) []entity.Order {
	out := slices.Clone(orders)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b entity.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
