package events

import (
	"encoding/json"
	"time"
)

const (
	ListingCreated   = "listing.created"
	ListingReserved  = "listing.reserved"
	ListingCancelled = "listing.cancelled"
	ListingCollected = "listing.collected"
	ListingExpired   = "listing.expired"
)

// RoutingPattern matches every listing event on a topic exchange.
const RoutingPattern = "listing.*"

const envelopeVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // listing id
	Payload       json.RawMessage `json:"payload"`
}

type ListingPayload struct {
	ListingID   string     `json:"listing_id"`
	HostelID    string     `json:"hostel_id"`
	Status      string     `json:"status"`
	Version     int        `json:"version"`
	ReservedBy  *string    `json:"reserved_by,omitempty"`
	ReservedAt  *time.Time `json:"reserved_at,omitempty"`
	CollectedBy *string    `json:"collected_by,omitempty"`
	// ExpiredUser is the volunteer whose reservation lapsed, set on listing.expired.
	ExpiredUser string `json:"expired_user,omitempty"`
}

func Decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
