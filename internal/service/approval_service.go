package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
)

// ApprovalService records admin verdicts on listings.
type ApprovalService struct {
	core *Core
}

func NewApprovalService(core *Core) *ApprovalService {
	return &ApprovalService{core: core}
}

// Accept marks the listing accepted and un-deletes it, which is how a
// declined listing is rehabilitated. It does not reset the sale status.
func (s *ApprovalService) Accept(ctx context.Context, id string) (entity.Listing, error) {
	l, err := s.core.mutateListing(ctx, id, func(l entity.Listing, at time.Time) (entity.Event, error) {
		if l.AdminStatus == entity.AdminAccepted && !l.Deleted {
			return nil, nil
		}
		return entity.ListingAccepted{ListingID: id, At: at}, nil
	})
	if err != nil {
		return entity.Listing{}, err
	}
	slog.Info("Listing accepted", "listing_id", id)
	return l, nil
}

// Decline marks the listing declined and soft deletes it.
func (s *ApprovalService) Decline(ctx context.Context, id string) (entity.Listing, error) {
	l, err := s.core.mutateListing(ctx, id, func(l entity.Listing, at time.Time) (entity.Event, error) {
		if l.AdminStatus == entity.AdminDeclined && l.Deleted {
			return nil, nil
		}
		return entity.ListingDeclined{ListingID: id, At: at}, nil
	})
	if err != nil {
		return entity.Listing{}, err
	}
	slog.Info("Listing declined", "listing_id", id)
	return l, nil
}
