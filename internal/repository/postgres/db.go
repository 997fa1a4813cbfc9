package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

func InitDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

func migrateDB(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			age_label TEXT NOT NULL DEFAULT '',
			listing_type TEXT NOT NULL,
			buy_price NUMERIC(18,2),
			rent_price NUMERIC(18,2),
			image TEXT NOT NULL DEFAULT '',
			seller TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'listed',
			admin_status TEXT NOT NULL DEFAULT 'pending',
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			revenue NUMERIC(18,2) NOT NULL DEFAULT 0,
			listed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS orders (
			seq BIGSERIAL PRIMARY KEY,
			order_id TEXT NOT NULL UNIQUE,
			listing_id TEXT NOT NULL,
			listing_name TEXT NOT NULL DEFAULT '',
			buyer_name TEXT NOT NULL DEFAULT '',
			seller_business_name TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			price NUMERIC(18,2) NOT NULL DEFAULT 0,
			quantity INT NOT NULL DEFAULT 0,
			rent_days INT NOT NULL DEFAULT 0,
			rent_start TIMESTAMPTZ,
			rent_end TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			stream_id TEXT NOT NULL,
			stream_type TEXT NOT NULL,
			version INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (stream_id, version)
		);
	`)
	return err
}

// mapErr turns postgres resource errors (class 53 insufficient resources,
// class 54 program limit exceeded) into repository.ErrCapacity.
func mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "53", "54":
			return fmt.Errorf("%w: %s", repository.ErrCapacity, pqErr.Message)
		}
	}
	return err
}
