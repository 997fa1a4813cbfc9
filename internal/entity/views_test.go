package entity_test

import (
	"slices"
	"testing"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
)

func ids(listings []entity.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func sampleSet() []entity.Listing {
	buy := newListing("buy", entity.ListingTypeBuy)
	buy.AdminStatus = entity.AdminAccepted

	rent := newListing("rent", entity.ListingTypeRent)
	rent.AdminStatus = entity.AdminAccepted

	both := newListing("both", entity.ListingTypeBoth)
	both.AdminStatus = entity.AdminAccepted

	pending := newListing("pending", entity.ListingTypeBoth)

	sold := newListing("sold", entity.ListingTypeBuy)
	sold.AdminStatus = entity.AdminAccepted
	sold.Status = entity.StatusSold

	deleted := newListing("deleted", entity.ListingTypeBuy)
	deleted.AdminStatus = entity.AdminAccepted
	deleted.Deleted = true

	return []entity.Listing{buy, rent, both, pending, sold, deleted}
}

func TestMarketplaceView(t *testing.T) {
	set := sampleSet()
	tests := []struct {
		filter entity.MarketFilter
		want   []string
	}{
		{entity.MarketAll, []string{"buy", "rent", "both"}},
		{entity.MarketBuy, []string{"buy", "both"}},
		{entity.MarketRent, []string{"rent", "both"}},
	}
	for _, tt := range tests {
		got := ids(entity.MarketplaceView(set, tt.filter))
		if !slices.Equal(got, tt.want) {
			t.Fatalf("filter %s: expected %v, got %v", tt.filter, tt.want, got)
		}
	}
}

func TestMarketplaceViewIdempotent(t *testing.T) {
	set := sampleSet()
	before := slices.Clone(set)

	once := entity.MarketplaceView(set, entity.MarketAll)
	twice := entity.MarketplaceView(once, entity.MarketAll)

	if !slices.Equal(ids(once), ids(twice)) {
		t.Fatalf("expected same subset, got %v then %v", ids(once), ids(twice))
	}
	if !slices.Equal(ids(before), ids(set)) {
		t.Fatal("view must not modify its input")
	}
}

func TestManageFilter(t *testing.T) {
	set := sampleSet()
	if got := entity.Filter(set, entity.ManageDeleted.Matches); !slices.Equal(ids(got), []string{"deleted"}) {
		t.Fatalf("expected only deleted listing, got %v", ids(got))
	}
	if got := entity.Filter(set, entity.ManageActive.Matches); len(got) != 5 {
		t.Fatalf("expected 5 active listings, got %d", len(got))
	}
	if got := entity.Filter(set, entity.ManageAll.Matches); len(got) != len(set) {
		t.Fatalf("expected %d listings, got %d", len(set), len(got))
	}
}

func TestParseFilters(t *testing.T) {
	if f, err := entity.ParseMarketFilter(""); err != nil || f != entity.MarketAll {
		t.Fatalf("expected all for empty filter, got %q, %v", f, err)
	}
	if _, err := entity.ParseMarketFilter("swap"); err == nil {
		t.Fatal("expected error for unknown market filter")
	}
	if f, err := entity.ParseManageFilter("deleted"); err != nil || f != entity.ManageDeleted {
		t.Fatalf("expected deleted, got %q, %v", f, err)
	}
	if _, err := entity.ParseManageFilter("archived"); err == nil {
		t.Fatal("expected error for unknown manage filter")
	}
}
