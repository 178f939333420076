package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/internal/events"
	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/repository"
	"github.com/sirupsen/logrus"
)

const maxTransitionAttempts = 3

// AccountDirectory resolves callers to accounts.
type AccountDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

// EventPublisher is told about every committed state change.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, listing *models.Listing) error
}

type CreateListingInput struct {
	FoodType       models.FoodType
	Quantity       int
	Name           string
	Description    string
	Location       string
	AvailableUntil time.Time
	ImageURL       string
}

type ListingService interface {
	CreateListing(ctx context.Context, hostelID string, in CreateListingInput) (*models.Listing, error)
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	ListAvailable(ctx context.Context) ([]models.Listing, error)
	ListByHostel(ctx context.Context, hostelID string) ([]models.Listing, error)
	Reserve(ctx context.Context, listingID, volunteerID string) (*models.Listing, error)
	Cancel(ctx context.Context, listingID, volunteerID string) (*models.Listing, error)
	MarkCollected(ctx context.Context, listingID, hostelID string) (*models.Listing, error)
	// Sweep reclaims every reservation older than ReservationWindow and
	// returns how many listings went back to AVAILABLE.
	Sweep(ctx context.Context) (int, error)
}

type Option func(*listingService)

func WithClock(now func() time.Time) Option {
	return func(s *listingService) { s.now = now }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *listingService) { s.publisher = p }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *listingService) { s.log = log }
}

type listingService struct {
	listings  repository.ListingRepository
	accounts  AccountDirectory
	publisher EventPublisher
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewListingService(listings repository.ListingRepository, accounts AccountDirectory, opts ...Option) ListingService {
	s := &listingService{
		listings: listings,
		accounts: accounts,
		log:      logrus.StandardLogger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *listingService) CreateListing(ctx context.Context, hostelID string, in CreateListingInput) (*models.Listing, error) {
	if err := s.requireRole(ctx, hostelID, models.RoleHostel, ErrInvalidHostel); err != nil {
		return nil, err
	}

	now := s.now()
	location := strings.TrimSpace(in.Location)
	switch {
	case !in.FoodType.Valid():
		return nil, validationError("foodType must be VEG or NON_VEG")
	case in.Quantity < 1:
		return nil, validationError("quantity must be at least 1")
	case location == "":
		return nil, validationError("location is required")
	case in.AvailableUntil.IsZero():
		return nil, validationError("availableUntil is required")
	case !in.AvailableUntil.After(now):
		return nil, validationError("availableUntil must be in the future")
	}

	listing := &models.Listing{
		HostelID:       hostelID,
		FoodType:       in.FoodType,
		Quantity:       in.Quantity,
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		Location:       location,
		AvailableUntil: in.AvailableUntil.UTC(),
		ImageURL:       strings.TrimSpace(in.ImageURL),
		Status:         models.StatusAvailable,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.log.WithFields(logrus.Fields{"listing_id": listing.ID, "hostel_id": hostelID}).Info("listing created")
	s.emit(ctx, events.ListingCreated, listing)
	return listing, nil
}

func (s *listingService) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	return s.loadListing(ctx, id)
}

func (s *listingService) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	listings, err := s.listings.FindByStatus(ctx, models.StatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("list available: %w", err)
	}
	return listings, nil
}

func (s *listingService) ListByHostel(ctx context.Context, hostelID string) ([]models.Listing, error) {
	listings, err := s.listings.FindByHostel(ctx, hostelID)
	if err != nil {
		return nil, fmt.Errorf("list by hostel: %w", err)
	}
	return listings, nil
}

func (s *listingService) Reserve(ctx context.Context, listingID, volunteerID string) (*models.Listing, error) {
	listing, err := s.transition(ctx, listingID, func(l *models.Listing, now time.Time) (*models.ReservationRecord, error) {
		if err := s.requireRole(ctx, volunteerID, models.RoleVolunteer, ErrInvalidVolunteer); err != nil {
			return nil, err
		}
		if l.Status != models.StatusAvailable {
			return nil, ErrNotAvailable
		}
		if l.HasExpiredReservation(volunteerID) {
			return nil, ErrPreviouslyExpired
		}
		l.Reserve(volunteerID, now)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"listing_id": listingID, "volunteer_id": volunteerID}).Info("listing reserved")
	s.emit(ctx, events.ListingReserved, listing)
	return listing, nil
}

func (s *listingService) Cancel(ctx context.Context, listingID, volunteerID string) (*models.Listing, error) {
	listing, err := s.transition(ctx, listingID, func(l *models.Listing, _ time.Time) (*models.ReservationRecord, error) {
		if err := s.requireRole(ctx, volunteerID, models.RoleVolunteer, ErrInvalidVolunteer); err != nil {
			return nil, err
		}
		if l.Status != models.StatusReserved {
			return nil, ErrNotReserved
		}
		if *l.ReservedBy != volunteerID {
			return nil, ErrNotOwner
		}
		l.Release()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"listing_id": listingID, "volunteer_id": volunteerID}).Info("reservation cancelled")
	s.emit(ctx, events.ListingCancelled, listing)
	return listing, nil
}

func (s *listingService) MarkCollected(ctx context.Context, listingID, hostelID string) (*models.Listing, error) {
	listing, err := s.transition(ctx, listingID, func(l *models.Listing, now time.Time) (*models.ReservationRecord, error) {
		if err := s.requireRole(ctx, hostelID, models.RoleHostel, ErrInvalidHostel); err != nil {
			return nil, err
		}
		if l.HostelID != hostelID {
			return nil, ErrNotOwner
		}
		if l.Status != models.StatusReserved {
			return nil, ErrNotReserved
		}
		// Lazy expiry: a lapsed reservation is reclaimed here even if the
		// sweep has not run yet.
		if rec, expired := expireIfDue(l, now); expired {
			return rec, ErrReservationExpired
		}
		l.Collect()
		return nil, nil
	})
	if errors.Is(err, ErrReservationExpired) {
		s.log.WithFields(logrus.Fields{"listing_id": listingID, "hostel_id": hostelID}).Info("reservation expired on collection")
		s.emit(ctx, events.ListingExpired, listing)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"listing_id": listingID, "hostel_id": hostelID}).Info("listing collected")
	s.emit(ctx, events.ListingCollected, listing)
	return listing, nil
}

func (s *listingService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.listings.FindReservedBefore(ctx, now.Add(-ReservationWindow))
	if err != nil {
		return 0, fmt.Errorf("find lapsed reservations: %w", err)
	}

	reclaimed := 0
	for i := range due {
		l := &due[i]
		rec, expired := expireIfDue(l, now)
		if !expired {
			continue
		}
		log := s.log.WithFields(logrus.Fields{"listing_id": l.ID, "volunteer_id": rec.UserID})

		if err := s.listings.Transition(ctx, l, models.StatusReserved, rec); err != nil {
			if errors.Is(err, repository.ErrStaleListing) {
				log.Debug("listing changed during sweep, skipping")
				continue
			}
			// retried on the next cycle
			log.WithError(err).Error("failed to expire reservation")
			continue
		}
		reclaimed++
		log.Info("reservation expired")
		s.emit(ctx, events.ListingExpired, l)
	}

	if reclaimed > 0 {
		s.log.WithField("reclaimed", reclaimed).Info("sweep finished")
	}
	return reclaimed, nil
}

// transitionFunc mutates a freshly loaded listing. Returning an error with no
// record rejects the change; a record is persisted even when an error is
// returned alongside it.
type transitionFunc func(l *models.Listing, now time.Time) (*models.ReservationRecord, error)

// transition runs apply against the current state of the listing and commits
// it with a conditional write. A concurrent change makes the write stale, in
// which case the listing is re-read and apply runs again.
func (s *listingService) transition(ctx context.Context, listingID string, apply transitionFunc) (*models.Listing, error) {
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		l, err := s.loadListing(ctx, listingID)
		if err != nil {
			return nil, err
		}

		from := l.Status
		rec, applyErr := apply(l, s.now())
		if applyErr != nil && rec == nil {
			return nil, applyErr
		}

		err = s.listings.Transition(ctx, l, from, rec)
		if errors.Is(err, repository.ErrStaleListing) {
			s.log.WithFields(logrus.Fields{"listing_id": listingID, "attempt": attempt}).Debug("stale listing, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update listing %s: %w", listingID, err)
		}
		return l, applyErr
	}
	return nil, ErrConflict
}

func (s *listingService) loadListing(ctx context.Context, id string) (*models.Listing, error) {
	l, err := s.listings.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load listing %s: %w", id, err)
	}
	return l, nil
}

func (s *listingService) requireRole(ctx context.Context, accountID string, role models.Role, roleErr *Error) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return unknownAccount(roleErr)
	}
	if err != nil {
		return fmt.Errorf("look up account %s: %w", accountID, err)
	}
	if account.Role != role {
		return roleErr
	}
	return nil
}

// emit is best-effort; the state change has already committed.
func (s *listingService) emit(ctx context.Context, eventType string, l *models.Listing) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, l); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"listing_id": l.ID,
			"event_type": eventType,
		}).Warn("failed to publish listing event")
	}
}
