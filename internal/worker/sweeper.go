package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SweepFunc reclaims lapsed reservations and reports how many it freed.
type SweepFunc func(ctx context.Context) (int, error)

// Locker is an optional cross-process mutex around a sweep run.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error)
}

type SweeperOption func(*Sweeper)

// WithLock makes every run take key first; runs that lose the lock are
// skipped.
func WithLock(l Locker, key string) SweeperOption {
	return func(s *Sweeper) {
		s.locker = l
		s.lockKey = key
	}
}

// Sweeper calls the sweep on a fixed interval until stopped.
type Sweeper struct {
	sweep    SweepFunc
	interval time.Duration
	locker   Locker
	lockKey  string
	log      logrus.FieldLogger

	stopCh    chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewSweeper(sweep SweepFunc, interval time.Duration, log logrus.FieldLogger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		sweep:    sweep,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one sweep immediately, then one per interval. Only the first
// call has an effect.
func (s *Sweeper) Start(ctx context.Context) {
	s.startOnce.Do(func() { go s.loop(ctx) })
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight run to finish. A sweeper that
// was never started stops immediately and can no longer be started.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.startOnce.Do(func() { close(s.done) })
	<-s.done
}

// RunOnce performs a single sweep. Errors are logged; the next tick retries.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, s.lockKey, s.interval)
		if err != nil {
			s.log.WithError(err).Warn("sweep lock unavailable, skipping run")
			return
		}
		if !ok {
			s.log.Debug("sweep already running elsewhere")
			return
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.log.WithError(err).Warn("failed to release sweep lock")
			}
		}()
	}

	start := time.Now()
	n, err := s.sweep(ctx)
	if err != nil {
		s.log.WithError(err).Error("sweep failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"reclaimed": n,
		"took":      time.Since(start).String(),
	}).Debug("sweep completed")
}
