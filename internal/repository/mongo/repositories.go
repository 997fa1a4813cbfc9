package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

type listingDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	AgeLabel    string    `bson:"age_label"`
	ListingType string    `bson:"listing_type"`
	BuyPrice    *string   `bson:"buy_price,omitempty"`
	RentPrice   *string   `bson:"rent_price,omitempty"`
	Image       string    `bson:"image"`
	Seller      string    `bson:"seller"`
	Status      string    `bson:"status"`
	AdminStatus string    `bson:"admin_status,omitempty"`
	Deleted     bool      `bson:"deleted"`
	Revenue     string    `bson:"revenue"`
	ListedAt    time.Time `bson:"listed_at"`
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toListingDoc(l entity.Listing) listingDoc {
	return listingDoc{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		AgeLabel:    l.AgeLabel,
		ListingType: string(l.ListingType),
		BuyPrice:    decimalString(l.BuyPrice),
		RentPrice:   decimalString(l.RentPrice),
		Image:       l.Image,
		Seller:      l.Seller,
		Status:      string(l.Status),
		AdminStatus: string(l.AdminStatus),
		Deleted:     l.Deleted,
		Revenue:     l.Revenue.String(),
		ListedAt:    l.ListedAt,
	}
}

func (d listingDoc) toEntity() (entity.Listing, error) {
	buy, err := parseDecimal(d.BuyPrice)
	if err != nil {
		return entity.Listing{}, fmt.Errorf("listing %s buy_price: %w", d.ID, err)
	}
	rent, err := parseDecimal(d.RentPrice)
	if err != nil {
		return entity.Listing{}, fmt.Errorf("listing %s rent_price: %w", d.ID, err)
	}
	revenue, err := decimal.NewFromString(d.Revenue)
	if err != nil {
		return entity.Listing{}, fmt.Errorf("listing %s revenue: %w", d.ID, err)
	}
	adminStatus := entity.AdminStatus(d.AdminStatus)
	if adminStatus == "" {
		adminStatus = entity.AdminPending
	}
	return entity.Listing{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		AgeLabel:    d.AgeLabel,
		ListingType: entity.ListingType(d.ListingType),
		BuyPrice:    buy,
		RentPrice:   rent,
		Image:       d.Image,
		Seller:      d.Seller,
		Status:      entity.ListingStatus(d.Status),
		AdminStatus: adminStatus,
		Deleted:     d.Deleted,
		Revenue:     revenue,
		ListedAt:    d.ListedAt,
	}, nil
}

// checkSize rejects documents the server would refuse.
func checkSize(doc any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if len(raw) > maxDocumentBytes {
		return fmt.Errorf("%w: document is %d bytes", repository.ErrCapacity, len(raw))
	}
	return nil
}

type listingRepository struct {
	coll *mongo.Collection
}

func (r *listingRepository) LoadListings(ctx context.Context) ([]entity.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "listed_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}

	listings := make([]entity.Listing, 0, len(docs))
	for _, d := range docs {
		l, err := d.toEntity()
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func (r *listingRepository) SaveListings(ctx context.Context, listings []entity.Listing) error {
	ids := make([]string, 0, len(listings))
	models := make([]mongo.WriteModel, 0, len(listings))
	for _, l := range listings {
		doc := toListingDoc(l)
		if err := checkSize(doc); err != nil {
			return fmt.Errorf("listing %s: %w", l.ID, err)
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": l.ID}).
			SetReplacement(doc).
			SetUpsert(true))
		ids = append(ids, l.ID)
	}

	if len(models) > 0 {
		if _, err := r.coll.BulkWrite(ctx, models); err != nil {
			return fmt.Errorf("failed to save listings: %w", err)
		}
	}
	if _, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}}); err != nil {
		return fmt.Errorf("failed to prune listings: %w", err)
	}
	return nil
}

type orderDoc struct {
	ID                 string     `bson:"_id"`
	ListingID          string     `bson:"listing_id"`
	ListingName        string     `bson:"listing_name"`
	BuyerName          string     `bson:"buyer_name"`
	SellerBusinessName string     `bson:"seller_business_name"`
	Action             string     `bson:"action"`
	Price              string     `bson:"price"`
	Quantity           int        `bson:"quantity,omitempty"`
	RentDays           int        `bson:"rent_days,omitempty"`
	RentStart          *time.Time `bson:"rent_start,omitempty"`
	RentEnd            *time.Time `bson:"rent_end,omitempty"`
	CreatedAt          time.Time  `bson:"created_at"`
}

type orderRepository struct {
	coll *mongo.Collection
}

func (r *orderRepository) LoadOrders(ctx context.Context) ([]entity.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]entity.Order, 0, len(docs))
	for _, d := range docs {
		price, err := decimal.NewFromString(d.Price)
		if err != nil {
			return nil, fmt.Errorf("order %s price: %w", d.ID, err)
		}
		orders = append(orders, entity.Order{
			OrderID:            d.ID,
			ListingID:          d.ListingID,
			ListingName:        d.ListingName,
			BuyerName:          d.BuyerName,
			SellerBusinessName: d.SellerBusinessName,
			Action:             entity.Action(d.Action),
			Price:              price,
			Quantity:           d.Quantity,
			RentDays:           d.RentDays,
			RentStart:          d.RentStart,
			RentEnd:            d.RentEnd,
			CreatedAt:          d.CreatedAt,
		})
	}
	return orders, nil
}

func (r *orderRepository) AppendOrder(ctx context.Context, o entity.Order) error {
	doc := orderDoc{
		ID:                 o.OrderID,
		ListingID:          o.ListingID,
		ListingName:        o.ListingName,
		BuyerName:          o.BuyerName,
		SellerBusinessName: o.SellerBusinessName,
		Action:             string(o.Action),
		Price:              o.Price.String(),
		Quantity:           o.Quantity,
		RentDays:           o.RentDays,
		RentStart:          o.RentStart,
		RentEnd:            o.RentEnd,
		CreatedAt:          o.CreatedAt,
	}
	if err := checkSize(doc); err != nil {
		return fmt.Errorf("order %s: %w", o.OrderID, err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert order %s: %w", o.OrderID, err)
	}
	return nil
}

type eventDoc struct {
	ID         string    `bson:"_id"`
	StreamID   string    `bson:"stream_id"`
	StreamType string    `bson:"stream_type"`
	Version    int       `bson:"version"`
	EventType  string    `bson:"event_type"`
	Payload    []byte    `bson:"payload"`
	CreatedAt  time.Time `bson:"created_at"`
}

type eventStore struct {
	coll *mongo.Collection
}

func (s *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	currentVersion, err := s.coll.CountDocuments(ctx, bson.M{"stream_id": streamID})
	if err != nil {
		return fmt.Errorf("failed to get current stream version: %w", err)
	}
	if expectedVersion >= 0 && int(currentVersion) != expectedVersion {
		return fmt.Errorf("concurrency exception: expected version %d, got %d", expectedVersion, currentVersion)
	}

	now := time.Now()
	version := int(currentVersion)
	docs := make([]interface{}, 0, len(events))
	for _, event := range events {
		version++
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		docs = append(docs, eventDoc{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    version,
			EventType:  event.EventType(),
			Payload:    payload,
			CreatedAt:  now,
		})
	}

	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert events for stream %s: %w", streamID, err)
	}
	return nil
}

func (s *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"stream_id": streamID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for stream %s: %w", streamID, err)
	}
	defer cursor.Close(ctx)

	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode event records: %w", err)
	}

	records := make([]entity.EventStoreRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, entity.EventStoreRecord{
			ID:         d.ID,
			StreamID:   d.StreamID,
			StreamType: d.StreamType,
			Version:    d.Version,
			EventType:  d.EventType,
			Payload:    d.Payload,
			CreatedAt:  d.CreatedAt,
		})
	}
	return records, nil
}
