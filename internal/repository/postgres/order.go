package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

type orderRow struct {
	Seq                int64           `db:"seq"`
	OrderID            string          `db:"order_id"`
	ListingID          string          `db:"listing_id"`
	ListingName        string          `db:"listing_name"`
	BuyerName          string          `db:"buyer_name"`
	SellerBusinessName string          `db:"seller_business_name"`
	Action             string          `db:"action"`
	Price              decimal.Decimal `db:"price"`
	Quantity           int             `db:"quantity"`
	RentDays           int             `db:"rent_days"`
	RentStart          sql.NullTime    `db:"rent_start"`
	RentEnd            sql.NullTime    `db:"rent_end"`
	CreatedAt          time.Time       `db:"created_at"`
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type orderRepository struct {
	db sqlx.ExtContext
}

// NewOrderRepository creates an OrderRepository backed by Postgres.
func NewOrderRepository(db sqlx.ExtContext) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) LoadOrders(ctx context.Context) ([]entity.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, "SELECT * FROM orders ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := make([]entity.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, entity.Order{
			OrderID:            row.OrderID,
			ListingID:          row.ListingID,
			ListingName:        row.ListingName,
			BuyerName:          row.BuyerName,
			SellerBusinessName: row.SellerBusinessName,
			Action:             entity.Action(row.Action),
			Price:              row.Price,
			Quantity:           row.Quantity,
			RentDays:           row.RentDays,
			RentStart:          timePtr(row.RentStart),
			RentEnd:            timePtr(row.RentEnd),
			CreatedAt:          row.CreatedAt,
		})
	}
	return orders, nil
}

func (r *orderRepository) AppendOrder(ctx context.Context, o entity.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders
			(order_id, listing_id, listing_name, buyer_name, seller_business_name, action, price, quantity, rent_days, rent_start, rent_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.OrderID, o.ListingID, o.ListingName, o.BuyerName, o.SellerBusinessName, string(o.Action),
		o.Price, o.Quantity, o.RentDays, nullTime(o.RentStart), nullTime(o.RentEnd), o.CreatedAt,
	)
	if err != nil {
		return mapErr(fmt.Errorf("failed to insert order %s: %w", o.OrderID, err))
	}
	return nil
}
