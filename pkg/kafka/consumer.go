package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler must return nil only when the message may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// messageReader is the part of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff     = 10 * time.Second
)

type Consumer struct {
	r       messageReader
	workers int
	backoff time.Duration
	log     logrus.FieldLogger
}

func NewConsumer(brokers []string, group, topic string, workers int, log logrus.FieldLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit explicitly after the handler succeeds
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r messageReader, workers int, log logrus.FieldLogger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, backoff: defaultRetryBackoff, log: log}
}

// Start fetches messages until ctx is cancelled. Each partition is pinned to
// one worker, so offsets are committed in order. A failing message is retried
// with backoff and blocks its partition until it succeeds; on shutdown it is
// left uncommitted and redelivered to the next member of the group.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if ctx.Err() != nil {
					continue
				}
				c.process(ctx, h, m)
			}
		}(lanes[i])
	}

	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
		if err := c.r.Close(); err != nil {
			c.log.WithError(err).Warn("kafka reader close")
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[m.Partition%len(lanes)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) {
	entry := c.log.WithFields(logrus.Fields{
		"topic":     m.Topic,
		"partition": m.Partition,
		"offset":    m.Offset,
	})

	wait := c.backoff
	for {
		err := h(ctx, m)
		if err == nil {
			break
		}
		entry.WithError(err).Warn("kafka handler failed, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		wait *= 2
		if wait > maxRetryBackoff {
			wait = maxRetryBackoff
		}
	}

	if err := c.r.CommitMessages(ctx, m); err != nil {
		entry.WithError(err).Warn("kafka commit failed")
	}
}
