package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/analytics"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/config"
	delivery "github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Store ---
	store, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// --- Notifications ---
	publisher, subscriber, closeBroker, err := buildMessaging(cfg, logger)
	if err != nil {
		slog.Error("Failed to init notifier", "notifier", cfg.Notifier, "err", err)
		os.Exit(1)
	}
	defer closeBroker()

	// --- Services ---
	core := service.NewCore(store, publisher)
	listings := service.NewListingService(core)
	approvals := service.NewApprovalService(core)
	transactions := service.NewTransactionService(core)
	reports := service.NewAnalyticsService(core)
	dashboard := service.NewDashboard(reports, analytics.Weekly)

	go dashboard.Run(ctx, subscriber)

	// --- HTTP API ---
	gin.SetMode(gin.ReleaseMode)
	handler := delivery.NewHandler(listings, approvals, transactions, reports, dashboard)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: delivery.NewRouter(handler, []byte(cfg.JWTSecret)),
	}

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.Store, "notifier", cfg.Notifier)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
