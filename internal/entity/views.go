package entity

import "fmt"

// Filter returns the listings for which keep is true, in their original order.
// It never modifies its input.
func Filter(listings []Listing, keep func(Listing) bool) []Listing {
	out := []Listing{}
	for _, l := range listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// MarketFilter narrows the buyer marketplace by offered action.
type MarketFilter string

const (
	MarketAll  MarketFilter = "all"
	MarketBuy  MarketFilter = "buy"
	MarketRent MarketFilter = "rent"
)

// ParseMarketFilter accepts "", all, buy or rent.
func ParseMarketFilter(s string) (MarketFilter, error) {
	switch f := MarketFilter(s); f {
	case "":
		return MarketAll, nil
	case MarketAll, MarketBuy, MarketRent:
		return f, nil
	}
	return "", &ValidationError{Field: "filter", Reason: fmt.Sprintf("unknown market filter %q", s)}
}

// Matches reports whether a purchasable listing belongs in the filtered view.
func (f MarketFilter) Matches(l Listing) bool {
	switch f {
	case MarketBuy:
		return l.ListingType.Supports(ActionBuy)
	case MarketRent:
		return l.ListingType.Supports(ActionRent)
	}
	return true
}

// ManageFilter narrows the seller management list.
type ManageFilter string

const (
	ManageAll     ManageFilter = "all"
	ManageActive  ManageFilter = "active"
	ManageDeleted ManageFilter = "deleted"
)

// ParseManageFilter accepts "", all, active or deleted.
func ParseManageFilter(s string) (ManageFilter, error) {
	switch f := ManageFilter(s); f {
	case "":
		return ManageAll, nil
	case ManageAll, ManageActive, ManageDeleted:
		return f, nil
	}
	return "", &ValidationError{Field: "filter", Reason: fmt.Sprintf("unknown manage filter %q", s)}
}

func (f ManageFilter) Matches(l Listing) bool {
	switch f {
	case ManageActive:
		return !l.Deleted
	case ManageDeleted:
		return l.Deleted
	}
	return true
}

// MarketplaceView applies the buyer marketplace predicate and then f.
func MarketplaceView(listings []Listing, f MarketFilter) []Listing {
	return Filter(listings, func(l Listing) bool {
		return l.IsPurchasable() && f.Matches(l)
	})
}
