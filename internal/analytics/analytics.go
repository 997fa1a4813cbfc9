// Package analytics derives reporting views from listings and orders. Every
// function is pure: it reads its arguments and a reference time and mutates
// nothing.
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
)

const day = 24 * time.Hour

// RevenueWindows sums listing revenue by listing date.
type RevenueWindows struct {
	Day   decimal.Decimal `json:"day"`
	Week  decimal.Decimal `json:"week"`
	Month decimal.Decimal `json:"month"`
	Year  decimal.Decimal `json:"year"`
}

// RevenueByWindow sums the revenue of non-deleted listings whose listedAt is
// within 1, 7, 30 and 365 days of now. A listing's whole accumulated revenue
// counts toward the window holding its listing date, not its order dates.
func RevenueByWindow(listings []entity.Listing, now time.Time) RevenueWindows {
	sum := func(w time.Duration) decimal.Decimal {
		total := decimal.Zero
		for _, l := range listings {
			if l.Deleted || now.Sub(l.ListedAt) > w {
				continue
			}
			total = total.Add(l.Revenue)
		}
		return total
	}
	return RevenueWindows{
		Day:   sum(day),
		Week:  sum(7 * day),
		Month: sum(30 * day),
		Year:  sum(365 * day),
	}
}

// Summary counts non-deleted listings by sale status.
type Summary struct {
	Total  int `json:"total"`
	Sold   int `json:"sold"`
	Rented int `json:"rented"`
}

func Summarize(listings []entity.Listing) Summary {
	var s Summary
	for _, l := range listings {
		if l.Deleted {
			continue
		}
		s.Total++
		switch l.Status {
		case entity.StatusSold:
			s.Sold++
		case entity.StatusRented:
			s.Rented++
		}
	}
	return s
}

// Timeframe selects the bucketing of OrderVolume.
type Timeframe string

const (
	Weekly  Timeframe = "weekly"
	Monthly Timeframe = "monthly"
	Yearly  Timeframe = "yearly"
)

// ParseTimeframe accepts "", weekly, monthly or yearly. Empty means weekly.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case "":
		return Weekly, nil
	case Weekly, Monthly, Yearly:
		return tf, nil
	}
	return "", &entity.ValidationError{Field: "timeframe", Reason: fmt.Sprintf("unknown timeframe %q", s)}
}

// Bucket counts buy and rent orders in one chart slot.
type Bucket struct {
	Label string `json:"label"`
	Buy   int    `json:"buy"`
	Rent  int    `json:"rent"`

	month time.Month
	year  int
}

func (b *Bucket) add(a entity.Action) {
	switch a {
	case entity.ActionBuy:
		b.Buy++
	case entity.ActionRent:
		b.Rent++
	}
}

// Volume is the time-bucketed order view plus flat counters.
type Volume struct {
	Timeframe      Timeframe `json:"timeframe"`
	Buckets        []Bucket  `json:"buckets"`
	DailyBuyCount  int       `json:"dailyBuyCount"`
	DailyRentCount int       `json:"dailyRentCount"`
	WeeklyCount    int       `json:"weeklyCount"`
	MonthlyCount   int       `json:"monthlyCount"`
}

// DaysSince is floor((now - t) / 1 day). It is negative for future times.
func DaysSince(t, now time.Time) int {
	return int(math.Floor(float64(now.Sub(t)) / float64(day)))
}

// OrderVolume buckets orders by createdAt, most recent bucket last:
//
//	weekly:  7 one-day buckets, index 6 - daysSince
//	monthly: 4 seven-day buckets, index 3 - daysSince/7
//	yearly:  12 calendar months ending with now's month
func OrderVolume(orders []entity.Order, tf Timeframe, now time.Time) Volume {
	v := Volume{Timeframe: tf, Buckets: newBuckets(tf, now)}

	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			continue
		}
		days := DaysSince(o.CreatedAt, now)

		if days == 0 {
			switch o.Action {
			case entity.ActionBuy:
				v.DailyBuyCount++
			case entity.ActionRent:
				v.DailyRentCount++
			}
		}
		if days < 7 {
			v.WeeklyCount++
		}
		if days < 30 {
			v.MonthlyCount++
		}

		switch tf {
		case Weekly:
			if days < 7 {
				if i := 6 - days; i >= 0 && i <= 6 {
					v.Buckets[i].add(o.Action)
				}
			}
		case Monthly:
			if days < 28 {
				if i := 3 - days/7; i >= 0 && i <= 3 {
					v.Buckets[i].add(o.Action)
				}
			}
		case Yearly:
			at := o.CreatedAt.In(now.Location())
			for i := range v.Buckets {
				if v.Buckets[i].month == at.Month() && v.Buckets[i].year == at.Year() {
					v.Buckets[i].add(o.Action)
					break
				}
			}
		}
	}
	return v
}

func newBuckets(tf Timeframe, now time.Time) []Bucket {
	switch tf {
	case Weekly:
		buckets := make([]Bucket, 7)
		for i := range buckets {
			d := now.AddDate(0, 0, -(6 - i))
			buckets[i].Label = d.Format("Mon, Jan 2")
		}
		return buckets
	case Monthly:
		buckets := make([]Bucket, 4)
		for i := range buckets {
			buckets[i].Label = fmt.Sprintf("Week %d", i+1)
		}
		return buckets
	case Yearly:
		buckets := make([]Bucket, 12)
		for i := range buckets {
			m := time.Date(now.Year(), now.Month()-time.Month(11-i), 1, 0, 0, 0, 0, now.Location())
			buckets[i] = Bucket{Label: m.Format("Jan 2006"), month: m.Month(), year: m.Year()}
		}
		return buckets
	}
	return []Bucket{}
}
