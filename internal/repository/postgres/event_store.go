package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/repository"
)

type eventStore struct {
	db sqlx.ExtContext
}

// NewEventStore creates a new EventStore backed by Postgres.
func NewEventStore(db sqlx.ExtContext) repository.EventStore {
	return &eventStore{db: db}
}

// SaveEvents appends events to a stream. A negative expectedVersion skips the
// concurrency check. Outside a unit of work it opens its own transaction.
func (s *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	db, ok := s.db.(*sqlx.DB)
	if !ok {
		return saveEvents(ctx, s.db, streamID, streamType, expectedVersion, events)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveEvents(ctx, tx, streamID, streamType, expectedVersion, events); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func saveEvents(ctx context.Context, tx sqlx.ExtContext, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	var currentVersion int
	err := sqlx.GetContext(ctx, tx, &currentVersion, "SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1", streamID)
	if err != nil {
		return fmt.Errorf("failed to get current stream version: %w", err)
	}

	if expectedVersion >= 0 && currentVersion != expectedVersion {
		return fmt.Errorf("concurrency exception: expected version %d, got %d", expectedVersion, currentVersion)
	}

	version := currentVersion
	now := time.Now()

	for _, event := range events {
		version++

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO events (id, stream_id, stream_type, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			uuid.NewString(), streamID, streamType, version, event.EventType(), payload, now,
		)
		if err != nil {
			return mapErr(fmt.Errorf("failed to insert event %s: %w", event.EventType(), err))
		}
	}
	return nil
}

func (s *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT id, stream_id, stream_type, version, event_type, payload, created_at FROM events WHERE stream_id = $1 ORDER BY version ASC", streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for stream %s: %w", streamID, err)
	}
	defer rows.Close()

	var events []entity.EventStoreRecord
	for rows.Next() {
		var record entity.EventStoreRecord
		if err := rows.Scan(&record.ID, &record.StreamID, &record.StreamType, &record.Version, &record.EventType, &record.Payload, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		events = append(events, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}
