package models

import (
	"time"

	"gorm.io/datatypes"
)

// ListingEvent is the audit copy of a lifecycle event consumed from the bus.
type ListingEvent struct {
	EventID    string         `gorm:"type:varchar(36);primaryKey" json:"event_id"`
	ListingID  string         `gorm:"type:varchar(36);not null;index" json:"listing_id"`
	EventType  string         `gorm:"type:varchar(40);not null" json:"event_type"`
	Producer   string         `gorm:"type:varchar(100)" json:"producer"`
	EventData  datatypes.JSON `json:"event_data"`
	OccurredAt time.Time      `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}
