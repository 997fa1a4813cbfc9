package analytics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/analytics"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
)

// A Saturday.
var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d float64) time.Time {
	return now.Add(-time.Duration(d * float64(24*time.Hour)))
}

func order(action entity.Action, at time.Time) entity.Order {
	return entity.Order{OrderID: "#AG-" + at.Format("150405"), Action: action, Price: decimal.NewFromInt(10), CreatedAt: at}
}

func listing(rev int64, at time.Time, deleted bool) entity.Listing {
	return entity.Listing{Revenue: decimal.NewFromInt(rev), ListedAt: at, Deleted: deleted, Status: entity.StatusListed}
}

func TestRevenueByWindow(t *testing.T) {
	listings := []entity.Listing{
		listing(100, daysAgo(0.5), false),
		listing(200, daysAgo(5), false),
		listing(400, daysAgo(20), false),
		listing(800, daysAgo(200), false),
		listing(1600, daysAgo(400), false),
		listing(5000, daysAgo(2), true),
	}

	got := analytics.RevenueByWindow(listings, now)
	want := map[string]int64{"day": 100, "week": 300, "month": 700, "year": 1500}
	for name, v := range map[string]decimal.Decimal{"day": got.Day, "week": got.Week, "month": got.Month, "year": got.Year} {
		if !v.Equal(decimal.NewFromInt(want[name])) {
			t.Fatalf("%s: expected %d, got %s", name, want[name], v)
		}
	}
}

func TestRevenueWindowBoundaryInclusive(t *testing.T) {
	got := analytics.RevenueByWindow([]entity.Listing{listing(10, daysAgo(7), false)}, now)
	if !got.Week.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected listing exactly 7 days old in week window, got %s", got.Week)
	}
	if !got.Day.IsZero() {
		t.Fatalf("expected empty day window, got %s", got.Day)
	}
}

func TestRevenueAttributedToListingDate(t *testing.T) {
	// Revenue earned yesterday on a listing from last year stays in the year window only.
	got := analytics.RevenueByWindow([]entity.Listing{listing(50, daysAgo(100), false)}, now)
	if !got.Month.IsZero() || !got.Year.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected revenue only in year window, got month=%s year=%s", got.Month, got.Year)
	}
}

func TestSummarize(t *testing.T) {
	sold := listing(1, now, false)
	sold.Status = entity.StatusSold
	rented := listing(1, now, false)
	rented.Status = entity.StatusRented
	gone := listing(1, now, true)
	gone.Status = entity.StatusSold

	got := analytics.Summarize([]entity.Listing{listing(0, now, false), sold, rented, gone})
	if got != (analytics.Summary{Total: 3, Sold: 1, Rented: 1}) {
		t.Fatalf("expected total 3 sold 1 rented 1, got %+v", got)
	}
}

func TestWeeklyBuckets(t *testing.T) {
	orders := []entity.Order{
		order(entity.ActionBuy, daysAgo(3)),
		order(entity.ActionRent, daysAgo(3.5)),
		order(entity.ActionBuy, daysAgo(8)),
		order(entity.ActionBuy, daysAgo(0.1)),
	}
	v := analytics.OrderVolume(orders, analytics.Weekly, now)

	if len(v.Buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(v.Buckets))
	}
	if b := v.Buckets[3]; b.Buy != 1 || b.Rent != 1 {
		t.Fatalf("expected bucket 3 to hold 1 buy and 1 rent, got %+v", b)
	}
	if b := v.Buckets[6]; b.Buy != 1 {
		t.Fatalf("expected today's bucket to hold 1 buy, got %+v", b)
	}
	total := 0
	for _, b := range v.Buckets {
		total += b.Buy + b.Rent
	}
	if total != 3 {
		t.Fatalf("expected 8-day-old order excluded, got %d bucketed orders", total)
	}
	if v.Buckets[6].Label != "Sat, Jun 15" || v.Buckets[0].Label != "Sun, Jun 9" {
		t.Fatalf("unexpected labels %q .. %q", v.Buckets[0].Label, v.Buckets[6].Label)
	}
}

func TestScalarCounts(t *testing.T) {
	orders := []entity.Order{
		order(entity.ActionBuy, daysAgo(0.2)),
		order(entity.ActionRent, daysAgo(0.3)),
		order(entity.ActionRent, daysAgo(0.4)),
		order(entity.ActionBuy, daysAgo(6.9)),
		order(entity.ActionBuy, daysAgo(29)),
		order(entity.ActionBuy, daysAgo(31)),
	}
	v := analytics.OrderVolume(orders, analytics.Weekly, now)

	if v.DailyBuyCount != 1 || v.DailyRentCount != 2 {
		t.Fatalf("expected daily 1 buy 2 rent, got %d and %d", v.DailyBuyCount, v.DailyRentCount)
	}
	if v.WeeklyCount != 4 {
		t.Fatalf("expected weekly count 4, got %d", v.WeeklyCount)
	}
	if v.MonthlyCount != 5 {
		t.Fatalf("expected monthly count 5, got %d", v.MonthlyCount)
	}
}

func TestFutureOrderNotBucketed(t *testing.T) {
	v := analytics.OrderVolume([]entity.Order{order(entity.ActionBuy, now.Add(36*time.Hour))}, analytics.Weekly, now)
	for i, b := range v.Buckets {
		if b.Buy != 0 {
			t.Fatalf("expected future order out of buckets, found in %d", i)
		}
	}
	if v.DailyBuyCount != 0 {
		t.Fatalf("expected future order not counted as daily, got %d", v.DailyBuyCount)
	}
}

func TestMonthlyBuckets(t *testing.T) {
	orders := []entity.Order{
		order(entity.ActionBuy, daysAgo(1)),
		order(entity.ActionRent, daysAgo(10)),
		order(entity.ActionBuy, daysAgo(27)),
		order(entity.ActionBuy, daysAgo(28)),
	}
	v := analytics.OrderVolume(orders, analytics.Monthly, now)

	if len(v.Buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(v.Buckets))
	}
	want := []analytics.Bucket{{Label: "Week 1", Buy: 1}, {Label: "Week 2"}, {Label: "Week 3", Rent: 1}, {Label: "Week 4", Buy: 1}}
	for i, w := range want {
		b := v.Buckets[i]
		if b.Label != w.Label || b.Buy != w.Buy || b.Rent != w.Rent {
			t.Fatalf("bucket %d: expected %+v, got %+v", i, w, b)
		}
	}
}

func TestYearlyBuckets(t *testing.T) {
	orders := []entity.Order{
		order(entity.ActionBuy, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		order(entity.ActionRent, time.Date(2023, 7, 20, 9, 0, 0, 0, time.UTC)),
		order(entity.ActionBuy, time.Date(2023, 6, 30, 9, 0, 0, 0, time.UTC)),
	}
	v := analytics.OrderVolume(orders, analytics.Yearly, now)

	if len(v.Buckets) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(v.Buckets))
	}
	if v.Buckets[0].Label != "Jul 2023" || v.Buckets[11].Label != "Jun 2024" {
		t.Fatalf("unexpected labels %q .. %q", v.Buckets[0].Label, v.Buckets[11].Label)
	}
	if v.Buckets[0].Rent != 1 || v.Buckets[11].Buy != 1 {
		t.Fatalf("expected rent in Jul 2023 and buy in Jun 2024, got %+v and %+v", v.Buckets[0], v.Buckets[11])
	}
	total := 0
	for _, b := range v.Buckets {
		total += b.Buy + b.Rent
	}
	if total != 2 {
		t.Fatalf("expected June 2023 order excluded, got %d bucketed", total)
	}
}

func TestParseTimeframe(t *testing.T) {
	if tf, err := analytics.ParseTimeframe(""); err != nil || tf != analytics.Weekly {
		t.Fatalf("expected weekly default, got %q, %v", tf, err)
	}
	if _, err := analytics.ParseTimeframe("hourly"); err == nil {
		t.Fatal("expected error for unknown timeframe")
	}
}

func TestDaysSince(t *testing.T) {
	if d := analytics.DaysSince(daysAgo(0.99), now); d != 0 {
		t.Fatalf("expected 0, got %d", d)
	}
	if d := analytics.DaysSince(now.Add(time.Hour), now); d != -1 {
		t.Fatalf("expected -1 for a future time, got %d", d)
	}
}
