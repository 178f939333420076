package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/food-rescue/listing-service/internal/events"
	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ErrMalformed marks a message that can never be stored and should not be
// redelivered.
var ErrMalformed = errors.New("malformed listing event")

// ListingEventConsumer stores lifecycle envelopes as the audit trail.
type ListingEventConsumer struct {
	repo repository.ListingEventRepository
	log  logrus.FieldLogger
}

func NewListingEventConsumer(repo repository.ListingEventRepository, log logrus.FieldLogger) *ListingEventConsumer {
	return &ListingEventConsumer{repo: repo, log: log}
}

// Handle decodes one envelope and saves it. Replays of a known event id are
// no-ops.
func (c *ListingEventConsumer) Handle(ctx context.Context, body []byte) error {
	env, err := events.Decode(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.EventID == "" || env.CorrelationID == "" || env.EventType == "" {
		return fmt.Errorf("%w: missing event_id, event_type or correlation_id", ErrMalformed)
	}

	record := &models.ListingEvent{
		EventID:    env.EventID,
		ListingID:  env.CorrelationID,
		EventType:  env.EventType,
		Producer:   env.Producer,
		EventData:  datatypes.JSON(env.Payload),
		OccurredAt: env.OccurredAt,
	}
	if err := c.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("save event %s: %w", env.EventID, err)
	}

	c.log.WithFields(logrus.Fields{
		"event_id":   env.EventID,
		"event_type": env.EventType,
		"listing_id": env.CorrelationID,
	}).Debug("listing event recorded")
	return nil
}

// Start drains RabbitMQ deliveries until the channel closes. Malformed
// messages are dropped, storage failures are requeued.
func (c *ListingEventConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			c.handleDelivery(ctx, msg)
		}
		c.log.Info("delivery channel closed, stopping listing event consumer")
	}()
}

func (c *ListingEventConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	err := c.Handle(ctx, msg.Body)
	switch {
	case err == nil:
		msg.Ack(false)
	case errors.Is(err, ErrMalformed):
		c.log.WithError(err).Warn("dropping listing event")
		msg.Nack(false, false)
	default:
		c.log.WithError(err).Error("failed to record listing event")
		msg.Nack(false, true)
	}
}

// HandleKafka adapts Handle to the Kafka consumer. Malformed messages are
// committed so they do not block the partition.
func (c *ListingEventConsumer) HandleKafka(ctx context.Context, m kafka.Message) error {
	err := c.Handle(ctx, m.Value)
	if errors.Is(err, ErrMalformed) {
		c.log.WithError(err).WithField("offset", m.Offset).Warn("dropping listing event")
		return nil
	}
	return err
}
