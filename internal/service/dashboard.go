package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/analytics"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/messaging"
)

// Dashboard keeps the latest admin analytics snapshot. Every change signal
// triggers a full recompute from the store; signals carry no diffs.
type Dashboard struct {
	analytics *AnalyticsService
	timeframe analytics.Timeframe

	mu       sync.RWMutex
	snapshot analytics.Volume
	ready    bool
}

func NewDashboard(a *AnalyticsService, tf analytics.Timeframe) *Dashboard {
	return &Dashboard{analytics: a, timeframe: tf}
}

// Refresh recomputes the snapshot.
func (d *Dashboard) Refresh(ctx context.Context) error {
	v, err := d.analytics.OrderVolume(ctx, d.timeframe)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.snapshot, d.ready = v, true
	d.mu.Unlock()
	return nil
}

// Snapshot returns the last computed view. ok is false before the first
// successful Refresh.
func (d *Dashboard) Snapshot() (v analytics.Volume, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot, d.ready
}

// Run refreshes once and then on every signal until ctx is cancelled.
func (d *Dashboard) Run(ctx context.Context, sub messaging.Subscriber) {
	if err := d.Refresh(ctx); err != nil {
		slog.Error("Failed initial dashboard refresh", "err", err)
	}
	sub.Consume(ctx, func(ctx context.Context, signal messaging.Signal) error {
		slog.Debug("Dashboard refresh", "kind", signal.Kind)
		return d.Refresh(ctx)
	})
}
