package service

import (
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
)

// ReservationWindow is how long a volunteer holds a listing before the
// reservation lapses.
const ReservationWindow = 2 * time.Hour

// expireIfDue reverts a RESERVED listing whose window has elapsed. It mutates l
// and returns the history record to append; ok is false when nothing changed.
// Both the lazy check in MarkCollected and the sweep go through here.
func expireIfDue(l *models.Listing, now time.Time) (*models.ReservationRecord, bool) {
	if l.Status != models.StatusReserved || l.ReservedBy == nil || l.ReservedAt == nil {
		return nil, false
	}
	if now.Sub(*l.ReservedAt) <= ReservationWindow {
		return nil, false
	}

	rec := &models.ReservationRecord{
		ListingID:  l.ID,
		UserID:     *l.ReservedBy,
		ReservedAt: *l.ReservedAt,
		Expired:    true,
		RecordedAt: now,
	}
	l.Release()
	return rec, true
}
