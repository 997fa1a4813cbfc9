package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/service"
)

var start = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recorder is a Publisher that keeps every signal.
type recorder struct {
	mu      sync.Mutex
	signals []messaging.Signal
	err     error
}

func (r *recorder) Publish(ctx context.Context, s messaging.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.signals = append(r.signals, s)
	return nil
}

func (r *recorder) kinds() []messaging.SignalKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []messaging.SignalKind{}
	for _, s := range r.signals {
		out = append(out, s.Kind)
	}
	return out
}

type testEnv struct {
	store        repository.Store
	clock        *testClock
	published    *recorder
	core         *service.Core
	listings     *service.ListingService
	approvals    *service.ApprovalService
	transactions *service.TransactionService
	analytics    *service.AnalyticsService
}

func newTestEnv(t *testing.T, store repository.Store, opts ...service.Option) *testEnv {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	env := &testEnv{
		store:     store,
		clock:     &testClock{t: start},
		published: &recorder{},
	}
	opts = append([]service.Option{service.WithClock(env.clock.Now)}, opts...)
	env.core = service.NewCore(store, env.published, opts...)
	env.listings = service.NewListingService(env.core)
	env.approvals = service.NewApprovalService(env.core)
	env.transactions = service.NewTransactionService(env.core)
	env.analytics = service.NewAnalyticsService(env.core)
	return env
}

func bothInput() service.CreateListingInput {
	return service.CreateListingInput{
		Name:        "Crib",
		Description: "Oak crib with mattress",
		AgeLabel:    "2 years",
		ListingType: entity.ListingTypeBoth,
		BuyPrice:    "1000",
		RentPrice:   "100",
		Seller:      "Little Steps",
	}
}

func (env *testEnv) create(t *testing.T, in service.CreateListingInput) entity.Listing {
	t.Helper()
	l, err := env.listings.CreateListing(context.Background(), in)
	if err != nil {
		t.Fatalf("failed to create listing: %v", err)
	}
	return l
}

func (env *testEnv) createAccepted(t *testing.T, in service.CreateListingInput) entity.Listing {
	t.Helper()
	l := env.create(t, in)
	l, err := env.approvals.Accept(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("failed to accept listing: %v", err)
	}
	return l
}

func buy(qty int) service.PurchaseRequest {
	return service.PurchaseRequest{Action: entity.ActionBuy, BuyerName: "Ana", Quantity: qty}
}

func rent(days int, from time.Time) service.PurchaseRequest {
	return service.PurchaseRequest{Action: entity.ActionRent, BuyerName: "Ana", RentDays: days, RentStart: from}
}

func assertErrAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %v", target, err)
	}
	return target
}
