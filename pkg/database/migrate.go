package database

import (
	"fmt"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Listing{},
		&models.ReservationRecord{},
		&models.ListingEvent{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
