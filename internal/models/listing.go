package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FoodType string

const (
	FoodVeg    FoodType = "VEG"
	FoodNonVeg FoodType = "NON_VEG"
)

func (f FoodType) Valid() bool {
	return f == FoodVeg || f == FoodNonVeg
}

type ListingStatus string

const (
	StatusAvailable ListingStatus = "AVAILABLE"
	StatusReserved  ListingStatus = "RESERVED"
	StatusCollected ListingStatus = "COLLECTED"
)

var validNext = map[ListingStatus]map[ListingStatus]bool{
	StatusAvailable: {StatusReserved: true},
	StatusReserved:  {StatusAvailable: true, StatusCollected: true},
	StatusCollected: {},
}

// CanTransition reports whether a listing may move from one status to another.
func CanTransition(from, to ListingStatus) bool {
	return validNext[from][to]
}

type Listing struct {
	ID             string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	HostelID       string        `gorm:"type:varchar(36);not null;index" json:"hostel_id"`
	FoodType       FoodType      `gorm:"type:varchar(10);not null" json:"food_type"`
	Quantity       int           `gorm:"not null" json:"quantity"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Location       string        `gorm:"not null" json:"location"`
	AvailableUntil time.Time     `gorm:"not null" json:"available_until"`
	ImageURL       string        `json:"image_url"`
	Status         ListingStatus `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`
	ReservedBy     *string       `gorm:"type:varchar(36)" json:"reserved_by"`
	ReservedAt     *time.Time    `json:"reserved_at"`
	CollectedBy    *string       `gorm:"type:varchar(36)" json:"collected_by"`
	Version        int           `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	History []ReservationRecord `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"reservation_history"`
}

// ReservationRecord is one entry of a listing's append-only reservation history.
type ReservationRecord struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	ListingID  string    `gorm:"type:varchar(36);not null;index:idx_record_listing_user" json:"-"`
	UserID     string    `gorm:"type:varchar(36);not null;index:idx_record_listing_user" json:"user_id"`
	ReservedAt time.Time `gorm:"not null" json:"reserved_at"`
	Expired    bool      `gorm:"not null;default:false" json:"expired"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = StatusAvailable
	}
	return nil
}

// Reserve puts the listing on hold for volunteerID starting at now.
func (l *Listing) Reserve(volunteerID string, now time.Time) {
	l.Status = StatusReserved
	l.ReservedBy = &volunteerID
	l.ReservedAt = &now
}

// Release clears the current reservation and makes the listing available again.
func (l *Listing) Release() {
	l.Status = StatusAvailable
	l.ReservedBy = nil
	l.ReservedAt = nil
}

// Collect hands the listing to whoever holds the reservation. The reservation
// fields are cleared; only RESERVED listings carry them.
func (l *Listing) Collect() {
	collector := *l.ReservedBy
	l.Status = StatusCollected
	l.CollectedBy = &collector
	l.ReservedBy = nil
	l.ReservedAt = nil
}

// HasExpiredReservation reports whether volunteerID once let a reservation on
// this listing lapse.
func (l *Listing) HasExpiredReservation(volunteerID string) bool {
	for _, rec := range l.History {
		if rec.Expired && rec.UserID == volunteerID {
			return true
		}
	}
	return false
}

// CheckInvariants validates that status and reservation fields agree.
func (l *Listing) CheckInvariants() error {
	switch l.Status {
	case StatusAvailable:
		if l.ReservedBy != nil || l.ReservedAt != nil || l.CollectedBy != nil {
			return errors.New("available listing carries reservation fields")
		}
	case StatusReserved:
		if l.ReservedBy == nil || l.ReservedAt == nil {
			return errors.New("reserved listing is missing reservedBy or reservedAt")
		}
		if l.CollectedBy != nil {
			return errors.New("reserved listing already has a collector")
		}
	case StatusCollected:
		if l.CollectedBy == nil {
			return errors.New("collected listing has no collector")
		}
		if l.ReservedBy != nil || l.ReservedAt != nil {
			return errors.New("collected listing still carries reservation fields")
		}
	default:
		return fmt.Errorf("unknown status %q", l.Status)
	}
	return nil
}
