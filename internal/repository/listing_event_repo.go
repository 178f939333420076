package repository

import (
	"context"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListingEventRepository interface {
	// Save stores the event once; redelivered events with a known id are ignored.
	Save(ctx context.Context, event *models.ListingEvent) error
	FindByListing(ctx context.Context, listingID string) ([]models.ListingEvent, error)
}

type listingEventRepository struct {
	db *gorm.DB
}

func NewListingEventRepository(db *gorm.DB) ListingEventRepository {
	return &listingEventRepository{db: db}
}

func (r *listingEventRepository) Save(ctx context.Context, event *models.ListingEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event).Error
}

func (r *listingEventRepository) FindByListing(ctx context.Context, listingID string) ([]models.ListingEvent, error) {
	var events []models.ListingEvent
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("occurred_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
