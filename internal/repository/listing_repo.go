package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"gorm.io/gorm"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	FindByStatus(ctx context.Context, status models.ListingStatus) ([]models.Listing, error)
	FindByHostel(ctx context.Context, hostelID string) ([]models.Listing, error)
	FindReservedBefore(ctx context.Context, cutoff time.Time) ([]models.Listing, error)
	Transition(ctx context.Context, listing *models.Listing, from models.ListingStatus, record *models.ReservationRecord) error
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("History", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	return translate(r.db.WithContext(ctx).Create(listing).Error)
}

func (r *listingRepository) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := withHistory(r.db.WithContext(ctx)).First(&listing, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &listing, nil
}

func (r *listingRepository) FindByStatus(ctx context.Context, status models.ListingStatus) ([]models.Listing, error) {
	var listings []models.Listing
	err := withHistory(r.db.WithContext(ctx)).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) FindByHostel(ctx context.Context, hostelID string) ([]models.Listing, error) {
	var listings []models.Listing
	err := withHistory(r.db.WithContext(ctx)).
		Where("hostel_id = ?", hostelID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// FindReservedBefore returns RESERVED listings whose reservation started strictly before cutoff.
func (r *listingRepository) FindReservedBefore(ctx context.Context, cutoff time.Time) ([]models.Listing, error) {
	var listings []models.Listing
	err := withHistory(r.db.WithContext(ctx)).
		Where("status = ? AND reserved_at < ?", models.StatusReserved, cutoff).
		Order("reserved_at ASC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// Transition persists the listing's new lifecycle state only if the stored row is
// still in status from at the version that was read. The optional history record
// is appended in the same transaction.
func (r *listingRepository) Transition(ctx context.Context, listing *models.Listing, from models.ListingStatus, record *models.ReservationRecord) error {
	if !models.CanTransition(from, listing.Status) {
		return fmt.Errorf("illegal transition %s -> %s", from, listing.Status)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Listing{}).
			Where("id = ? AND status = ? AND version = ?", listing.ID, from, listing.Version).
			Updates(map[string]any{
				"status":       listing.Status,
				"reserved_by":  listing.ReservedBy,
				"reserved_at":  listing.ReservedAt,
				"collected_by": listing.CollectedBy,
				"version":      gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleListing
		}

		if record != nil {
			record.ListingID = listing.ID
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("append reservation history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	listing.Version++
	if record != nil {
		listing.History = append(listing.History, *record)
	}
	return nil
}
