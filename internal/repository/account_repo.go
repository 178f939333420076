package repository

import (
	"context"
	"fmt"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	DeleteCascade(ctx context.Context, account *models.Account) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// DeleteCascade removes the account together with what it owns. A hostel's
// listings and their history go with it; reservations held by a volunteer are
// released without a history entry.
func (r *accountRepository) DeleteCascade(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch account.Role {
		case models.RoleHostel:
			owned := tx.Model(&models.Listing{}).Select("id").Where("hostel_id = ?", account.ID)
			if err := tx.Where("listing_id IN (?)", owned).Delete(&models.ReservationRecord{}).Error; err != nil {
				return fmt.Errorf("delete reservation history: %w", err)
			}
			if err := tx.Where("hostel_id = ?", account.ID).Delete(&models.Listing{}).Error; err != nil {
				return fmt.Errorf("delete listings: %w", err)
			}
		case models.RoleVolunteer:
			err := tx.Model(&models.Listing{}).
				Where("status = ? AND reserved_by = ?", models.StatusReserved, account.ID).
				Updates(map[string]any{
					"status":      models.StatusAvailable,
					"reserved_by": nil,
					"reserved_at": nil,
					"version":     gorm.Expr("version + 1"),
				}).Error
			if err != nil {
				return fmt.Errorf("release reservations: %w", err)
			}
		}

		res := tx.Delete(&models.Account{}, "id = ?", account.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
