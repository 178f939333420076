package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/repository"
	"github.com/google/uuid"
)

// --- Fake ListingRepository ---

// fakeListingRepo keeps listings in memory and applies the same conditional
// write rule as the gorm repository: status and version must both match.
type fakeListingRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Listing
	nextRec uint

	// beforeTransition runs before each conditional write, outside the lock.
	beforeTransition func(l *models.Listing)
	failTransition   map[string]error
	transitions      int
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{rows: map[string]*models.Listing{}, failTransition: map[string]error{}}
}

func cloneListing(l *models.Listing) *models.Listing {
	c := *l
	if l.ReservedBy != nil {
		v := *l.ReservedBy
		c.ReservedBy = &v
	}
	if l.ReservedAt != nil {
		v := *l.ReservedAt
		c.ReservedAt = &v
	}
	if l.CollectedBy != nil {
		v := *l.CollectedBy
		c.CollectedBy = &v
	}
	c.History = append([]models.ReservationRecord(nil), l.History...)
	return &c
}

func (r *fakeListingRepo) Create(_ context.Context, l *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	r.rows[l.ID] = cloneListing(l)
	return nil
}

func (r *fakeListingRepo) FindByID(_ context.Context, id string) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneListing(l), nil
}

func (r *fakeListingRepo) filter(keep func(*models.Listing) bool) []models.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Listing
	for _, l := range r.rows {
		if keep(l) {
			out = append(out, *cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeListingRepo) FindByStatus(_ context.Context, status models.ListingStatus) ([]models.Listing, error) {
	return r.filter(func(l *models.Listing) bool { return l.Status == status }), nil
}

func (r *fakeListingRepo) FindByHostel(_ context.Context, hostelID string) ([]models.Listing, error) {
	return r.filter(func(l *models.Listing) bool { return l.HostelID == hostelID }), nil
}

func (r *fakeListingRepo) FindReservedBefore(_ context.Context, cutoff time.Time) ([]models.Listing, error) {
	return r.filter(func(l *models.Listing) bool {
		return l.Status == models.StatusReserved && l.ReservedAt.Before(cutoff)
	}), nil
}

func (r *fakeListingRepo) Transition(_ context.Context, l *models.Listing, from models.ListingStatus, rec *models.ReservationRecord) error {
	if r.beforeTransition != nil {
		r.beforeTransition(l)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failTransition[l.ID]; err != nil {
		return err
	}
	if !models.CanTransition(from, l.Status) {
		return fmt.Errorf("illegal transition %s -> %s", from, l.Status)
	}
	stored, ok := r.rows[l.ID]
	if !ok || stored.Status != from || stored.Version != l.Version {
		return repository.ErrStaleListing
	}

	r.transitions++
	l.Version++
	if rec != nil {
		r.nextRec++
		rec.ID = r.nextRec
		rec.ListingID = l.ID
		l.History = append(l.History, *rec)
	}
	r.rows[l.ID] = cloneListing(l)
	return nil
}

// mutate changes a stored row as if another writer had committed.
func (r *fakeListingRepo) mutate(id string, fn func(l *models.Listing)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.rows[id])
	r.rows[id].Version++
}

func (r *fakeListingRepo) stored(id string) *models.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneListing(r.rows[id])
}

// --- Fake AccountDirectory / AccountRepository ---

type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[string]*models.Account
	findErr  error
	deleted  []string
	cascaded error
}

func newFakeAccounts(accounts ...*models.Account) *fakeAccounts {
	f := &fakeAccounts{byID: map[string]*models.Account{}}
	for _, a := range accounts {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	c := *a
	f.byID[a.ID] = &c
	return nil
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) DeleteCascade(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cascaded != nil {
		return f.cascaded
	}
	if _, ok := f.byID[a.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, a.ID)
	f.deleted = append(f.deleted, a.ID)
	return nil
}

// --- Recording publisher ---

type recordedEvent struct {
	eventType string
	listing   models.Listing
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, l *models.Listing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, listing: *cloneListing(l)})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

// --- Clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
