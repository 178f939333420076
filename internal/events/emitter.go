package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/google/uuid"
)

// Bus delivers an encoded envelope. key is the partition/ordering key.
type Bus interface {
	Publish(ctx context.Context, routingKey string, key, body []byte) error
}

// Emitter turns listing state changes into envelopes on a Bus.
type Emitter struct {
	bus      Bus
	producer string
	now      func() time.Time
}

func NewEmitter(bus Bus, producer string) *Emitter {
	return &Emitter{bus: bus, producer: producer, now: time.Now}
}

func (e *Emitter) Publish(ctx context.Context, eventType string, listing *models.Listing) error {
	payload := ListingPayload{
		ListingID:   listing.ID,
		HostelID:    listing.HostelID,
		Status:      string(listing.Status),
		Version:     listing.Version,
		ReservedBy:  listing.ReservedBy,
		ReservedAt:  listing.ReservedAt,
		CollectedBy: listing.CollectedBy,
	}
	if eventType == ListingExpired && len(listing.History) > 0 {
		payload.ExpiredUser = listing.History[len(listing.History)-1].UserID
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	body, err := json.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    e.now().UTC(),
		Producer:      e.producer,
		CorrelationID: listing.ID,
		Payload:       raw,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return e.bus.Publish(ctx, eventType, []byte(listing.ID), body)
}
