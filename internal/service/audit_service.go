package service

import (
	"context"
	"fmt"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/repository"
)

// AuditService reads the lifecycle events recorded for a listing.
type AuditService interface {
	ListingEvents(ctx context.Context, listingID string) ([]models.ListingEvent, error)
}

type auditService struct {
	events repository.ListingEventRepository
}

func NewAuditService(events repository.ListingEventRepository) AuditService {
	return &auditService{events: events}
}

// ListingEvents returns the trail oldest first. Events outlive their listing,
// so an unknown id yields an empty trail rather than NOT_FOUND.
func (s *auditService) ListingEvents(ctx context.Context, listingID string) ([]models.ListingEvent, error) {
	evs, err := s.events.FindByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return evs, nil
}
