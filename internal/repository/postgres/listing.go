package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

type listingRow struct {
	ID          string              `db:"id"`
	Name        string              `db:"name"`
	Description string              `db:"description"`
	AgeLabel    string              `db:"age_label"`
	ListingType string              `db:"listing_type"`
	BuyPrice    decimal.NullDecimal `db:"buy_price"`
	RentPrice   decimal.NullDecimal `db:"rent_price"`
	Image       string              `db:"image"`
	Seller      string              `db:"seller"`
	Status      string              `db:"status"`
	AdminStatus string              `db:"admin_status"`
	Deleted     bool                `db:"deleted"`
	Revenue     decimal.Decimal     `db:"revenue"`
	ListedAt    time.Time           `db:"listed_at"`
}

func toListingRow(l entity.Listing) listingRow {
	row := listingRow{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		AgeLabel:    l.AgeLabel,
		ListingType: string(l.ListingType),
		Image:       l.Image,
		Seller:      l.Seller,
		Status:      string(l.Status),
		AdminStatus: string(l.AdminStatus),
		Deleted:     l.Deleted,
		Revenue:     l.Revenue,
		ListedAt:    l.ListedAt,
	}
	if l.BuyPrice != nil {
		row.BuyPrice = decimal.NullDecimal{Decimal: *l.BuyPrice, Valid: true}
	}
	if l.RentPrice != nil {
		row.RentPrice = decimal.NullDecimal{Decimal: *l.RentPrice, Valid: true}
	}
	return row
}

func (r listingRow) toEntity() entity.Listing {
	l := entity.Listing{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		AgeLabel:    r.AgeLabel,
		ListingType: entity.ListingType(r.ListingType),
		Image:       r.Image,
		Seller:      r.Seller,
		Status:      entity.ListingStatus(r.Status),
		AdminStatus: entity.AdminStatus(r.AdminStatus),
		Deleted:     r.Deleted,
		Revenue:     r.Revenue,
		ListedAt:    r.ListedAt,
	}
	if l.AdminStatus == "" {
		l.AdminStatus = entity.AdminPending
	}
	if r.BuyPrice.Valid {
		p := r.BuyPrice.Decimal
		l.BuyPrice = &p
	}
	if r.RentPrice.Valid {
		p := r.RentPrice.Decimal
		l.RentPrice = &p
	}
	return l
}

type listingRepository struct {
	db sqlx.ExtContext
}

// NewListingRepository creates a ListingRepository backed by Postgres. db may
// be a *sqlx.DB or a *sqlx.Tx.
func NewListingRepository(db sqlx.ExtContext) repository.ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) LoadListings(ctx context.Context) ([]entity.Listing, error) {
	var rows []listingRow
	err := sqlx.SelectContext(ctx, r.db, &rows, "SELECT * FROM listings ORDER BY listed_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	listings := make([]entity.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, row.toEntity())
	}
	return listings, nil
}

// SaveListings runs under a savepoint when r.db is a transaction, so a
// capacity failure leaves the transaction usable for a retry.
func (r *listingRepository) SaveListings(ctx context.Context, listings []entity.Listing) error {
	if _, inTx := r.db.(*sqlx.Tx); !inTx {
		return r.saveListings(ctx, listings)
	}

	if _, err := r.db.ExecContext(ctx, "SAVEPOINT save_listings"); err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	if err := r.saveListings(ctx, listings); err != nil {
		if _, rbErr := r.db.ExecContext(ctx, "ROLLBACK TO SAVEPOINT save_listings"); rbErr != nil {
			return fmt.Errorf("failed to roll back savepoint after %v: %w", err, rbErr)
		}
		return err
	}
	_, err := r.db.ExecContext(ctx, "RELEASE SAVEPOINT save_listings")
	return err
}

func (r *listingRepository) saveListings(ctx context.Context, listings []entity.Listing) error {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		_, err := sqlx.NamedExecContext(ctx, r.db, `
			INSERT INTO listings
				(id, name, description, age_label, listing_type, buy_price, rent_price, image, seller, status, admin_status, deleted, revenue, listed_at)
			VALUES
				(:id, :name, :description, :age_label, :listing_type, :buy_price, :rent_price, :image, :seller, :status, :admin_status, :deleted, :revenue, :listed_at)
			ON CONFLICT (id) DO UPDATE SET
				image        = EXCLUDED.image,
				status       = EXCLUDED.status,
				admin_status = EXCLUDED.admin_status,
				deleted      = EXCLUDED.deleted,
				revenue      = EXCLUDED.revenue
		`, toListingRow(l))
		if err != nil {
			return mapErr(fmt.Errorf("failed to save listing %s: %w", l.ID, err))
		}
		ids = append(ids, l.ID)
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM listings WHERE NOT (id = ANY($1))", pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to prune listings: %w", err)
	}
	return nil
}
