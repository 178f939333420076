package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/internal/dto"
	"github.com/Eursukkul/food-rescue/listing-service/internal/middleware"
	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock ListingService ---

type mockListingService struct {
	createFn    func(ctx context.Context, hostelID string, in service.CreateListingInput) (*models.Listing, error)
	getFn       func(ctx context.Context, id string) (*models.Listing, error)
	availableFn func(ctx context.Context) ([]models.Listing, error)
	byHostelFn  func(ctx context.Context, hostelID string) ([]models.Listing, error)
	reserveFn   func(ctx context.Context, listingID, volunteerID string) (*models.Listing, error)
	cancelFn    func(ctx context.Context, listingID, volunteerID string) (*models.Listing, error)
	collectFn   func(ctx context.Context, listingID, hostelID string) (*models.Listing, error)
}

func (m *mockListingService) CreateListing(ctx context.Context, hostelID string, in service.CreateListingInput) (*models.Listing, error) {
	return m.createFn(ctx, hostelID, in)
}
func (m *mockListingService) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	return m.getFn(ctx, id)
}
func (m *mockListingService) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	return m.availableFn(ctx)
}
func (m *mockListingService) ListByHostel(ctx context.Context, hostelID string) ([]models.Listing, error) {
	return m.byHostelFn(ctx, hostelID)
}
func (m *mockListingService) Reserve(ctx context.Context, listingID, volunteerID string) (*models.Listing, error) {
	return m.reserveFn(ctx, listingID, volunteerID)
}
func (m *mockListingService) Cancel(ctx context.Context, listingID, volunteerID string) (*models.Listing, error) {
	return m.cancelFn(ctx, listingID, volunteerID)
}
func (m *mockListingService) MarkCollected(ctx context.Context, listingID, hostelID string) (*models.Listing, error) {
	return m.collectFn(ctx, listingID, hostelID)
}
func (m *mockListingService) Sweep(ctx context.Context) (int, error) { return 0, nil }

// --- Mock AuditService ---

type mockAuditService struct {
	eventsFn func(ctx context.Context, listingID string) ([]models.ListingEvent, error)
}

func (m *mockAuditService) ListingEvents(ctx context.Context, listingID string) ([]models.ListingEvent, error) {
	return m.eventsFn(ctx, listingID)
}

// --- Helpers ---

func newContext(method, target, body, callerID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewRequestValidator()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if callerID != "" {
		c.Set(middleware.ContextAccountID, callerID)
	}
	return c, rec
}

func assertHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	assert.Equal(t, status, he.Code)
	if code != "" {
		body, ok := he.Message.(dto.ErrorResponse)
		require.True(t, ok)
		assert.Equal(t, code, body.Code)
	}
}

func sampleListing(status models.ListingStatus) *models.Listing {
	return &models.Listing{
		ID:             "listing-1",
		HostelID:       "hostel-1",
		FoodType:       models.FoodVeg,
		Quantity:       12,
		Location:       "Mess",
		AvailableUntil: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		Status:         status,
	}
}

// --- Tests ---

func TestCreateListing_Handler_Success(t *testing.T) {
	var gotHostel string
	var gotInput service.CreateListingInput
	svc := &mockListingService{
		createFn: func(ctx context.Context, hostelID string, in service.CreateListingInput) (*models.Listing, error) {
			gotHostel, gotInput = hostelID, in
			return sampleListing(models.StatusAvailable), nil
		},
	}

	body := `{"food_type":"VEG","quantity":12,"location":"Mess","available_until":"2026-03-01T20:00:00Z"}`
	c, rec := newContext(http.MethodPost, "/api/v1/listings", body, "hostel-1")

	err := NewListingHandler(svc, nil).CreateListing(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hostel-1", gotHostel)
	assert.Equal(t, models.FoodVeg, gotInput.FoodType)
	assert.Equal(t, 12, gotInput.Quantity)

	var resp dto.ListingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "listing-1", resp.ID)
	assert.Equal(t, "AVAILABLE", resp.Status)
	assert.Empty(t, resp.ReservationHistory)
}

func TestCreateListing_Handler_ValidationError(t *testing.T) {
	svc := &mockListingService{}
	bodies := []string{
		`{"food_type":"VEGAN","quantity":1,"location":"x","available_until":"2026-03-01T20:00:00Z"}`,
		`{"food_type":"VEG","quantity":0,"location":"x","available_until":"2026-03-01T20:00:00Z"}`,
		`{"food_type":"VEG","quantity":1,"available_until":"2026-03-01T20:00:00Z"}`,
		`{"food_type":"VEG","quantity":1,"location":"x"}`,
		`{not json`,
	}
	for _, body := range bodies {
		c, _ := newContext(http.MethodPost, "/api/v1/listings", body, "hostel-1")
		err := NewListingHandler(svc, nil).CreateListing(c)
		assertHTTPError(t, err, http.StatusBadRequest, "VALIDATION")
	}
}

func TestCreateListing_Handler_NotHostel(t *testing.T) {
	svc := &mockListingService{
		createFn: func(ctx context.Context, hostelID string, in service.CreateListingInput) (*models.Listing, error) {
			return nil, service.ErrInvalidHostel
		},
	}
	body := `{"food_type":"VEG","quantity":1,"location":"x","available_until":"2026-03-01T20:00:00Z"}`
	c, _ := newContext(http.MethodPost, "/api/v1/listings", body, "vol-1")

	err := NewListingHandler(svc, nil).CreateListing(c)
	assertHTTPError(t, err, http.StatusForbidden, "INVALID_HOSTEL")
}

func TestCreateListing_Handler_VolunteerTokenRejectedBeforeBinding(t *testing.T) {
	svc := &mockListingService{
		createFn: func(ctx context.Context, hostelID string, in service.CreateListingInput) (*models.Listing, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/listings", `{"quantity":0}`, "vol-1")
	c.Set(middleware.ContextRole, models.RoleVolunteer)

	err := NewListingHandler(svc, nil).CreateListing(c)
	assertHTTPError(t, err, http.StatusForbidden, "INVALID_HOSTEL")
}

func TestCreateListing_Handler_HostelTokenPassesThrough(t *testing.T) {
	svc := &mockListingService{
		createFn: func(ctx context.Context, hostelID string, in service.CreateListingInput) (*models.Listing, error) {
			assert.Equal(t, "hostel-1", hostelID)
			l := sampleListing(models.StatusAvailable)
			return l, nil
		},
	}
	body := `{"food_type":"VEG","quantity":3,"location":"Gate","available_until":"2026-03-01T20:00:00Z"}`
	c, rec := newContext(http.MethodPost, "/api/v1/listings", body, "hostel-1")
	c.Set(middleware.ContextRole, models.RoleHostel)

	require.NoError(t, NewListingHandler(svc, nil).CreateListing(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestReserve_Handler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"not available", service.ErrNotAvailable, http.StatusConflict, "NOT_AVAILABLE"},
		{"wrong role", service.ErrInvalidVolunteer, http.StatusForbidden, "INVALID_VOLUNTEER"},
		{"previously expired", service.ErrPreviouslyExpired, http.StatusForbidden, "PREVIOUSLY_EXPIRED"},
		{"retries exhausted", service.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"storage failure", errors.New("db down"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockListingService{
				reserveFn: func(ctx context.Context, listingID, volunteerID string) (*models.Listing, error) {
					return nil, tt.err
				},
			}
			c, _ := newContext(http.MethodPost, "/api/v1/listings/listing-1/reserve", "", "vol-1")
			c.SetParamNames("id")
			c.SetParamValues("listing-1")

			err := NewListingHandler(svc, nil).Reserve(c)
			assertHTTPError(t, err, tt.status, tt.code)
		})
	}
}

func TestReserve_Handler_Success(t *testing.T) {
	svc := &mockListingService{
		reserveFn: func(ctx context.Context, listingID, volunteerID string) (*models.Listing, error) {
			l := sampleListing(models.StatusAvailable)
			l.Reserve(volunteerID, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
			return l, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/listings/listing-1/reserve", "", "vol-1")
	c.SetParamNames("id")
	c.SetParamValues("listing-1")

	require.NoError(t, NewListingHandler(svc, nil).Reserve(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ListingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RESERVED", resp.Status)
	require.NotNil(t, resp.ReservedBy)
	assert.Equal(t, "vol-1", *resp.ReservedBy)
}

func TestCancel_Handler_NotOwner(t *testing.T) {
	svc := &mockListingService{
		cancelFn: func(ctx context.Context, listingID, volunteerID string) (*models.Listing, error) {
			return nil, service.ErrNotOwner
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/listings/listing-1/cancel", "", "vol-2")
	c.SetParamNames("id")
	c.SetParamValues("listing-1")

	err := NewListingHandler(svc, nil).Cancel(c)
	assertHTTPError(t, err, http.StatusForbidden, "NOT_OWNER")
}

func TestMarkCollected_Handler(t *testing.T) {
	t.Run("collected", func(t *testing.T) {
		svc := &mockListingService{
			collectFn: func(ctx context.Context, listingID, hostelID string) (*models.Listing, error) {
				assert.Equal(t, "hostel-1", hostelID)
				l := sampleListing(models.StatusAvailable)
				l.Reserve("vol-1", time.Now())
				l.Collect()
				return l, nil
			},
		}
		c, rec := newContext(http.MethodPost, "/api/v1/listings/listing-1/collect", "", "hostel-1")
		c.SetParamNames("id")
		c.SetParamValues("listing-1")

		require.NoError(t, NewListingHandler(svc, nil).MarkCollected(c))
		var resp dto.ListingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "COLLECTED", resp.Status)
		assert.Equal(t, "vol-1", *resp.CollectedBy)
	})

	t.Run("expired", func(t *testing.T) {
		svc := &mockListingService{
			collectFn: func(ctx context.Context, listingID, hostelID string) (*models.Listing, error) {
				return nil, service.ErrReservationExpired
			},
		}
		c, _ := newContext(http.MethodPost, "/api/v1/listings/listing-1/collect", "", "hostel-1")
		c.SetParamNames("id")
		c.SetParamValues("listing-1")

		err := NewListingHandler(svc, nil).MarkCollected(c)
		assertHTTPError(t, err, http.StatusConflict, "RESERVATION_EXPIRED")
	})
}

func TestListAvailable_Handler(t *testing.T) {
	svc := &mockListingService{
		availableFn: func(ctx context.Context) ([]models.Listing, error) {
			return []models.Listing{*sampleListing(models.StatusAvailable)}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/listings", "", "")

	require.NoError(t, NewListingHandler(svc, nil).ListAvailable(c))
	var resp []dto.ListingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "listing-1", resp[0].ID)
}

func TestListByHostel_Handler_Empty(t *testing.T) {
	svc := &mockListingService{
		byHostelFn: func(ctx context.Context, hostelID string) ([]models.Listing, error) {
			assert.Equal(t, "hostel-9", hostelID)
			return nil, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/hostels/hostel-9/listings", "", "")
	c.SetParamNames("id")
	c.SetParamValues("hostel-9")

	require.NoError(t, NewListingHandler(svc, nil).ListByHostel(c))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetListing_Handler_NotFound(t *testing.T) {
	svc := &mockListingService{
		getFn: func(ctx context.Context, id string) (*models.Listing, error) {
			return nil, service.ErrNotFound
		},
	}
	c, _ := newContext(http.MethodGet, "/api/v1/listings/missing", "", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := NewListingHandler(svc, nil).GetListing(c)
	assertHTTPError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestListEvents_Handler(t *testing.T) {
	audit := &mockAuditService{
		eventsFn: func(ctx context.Context, listingID string) ([]models.ListingEvent, error) {
			return []models.ListingEvent{{
				EventID:   "evt-1",
				ListingID: listingID,
				EventType: "listing.created",
				EventData: []byte(`{"listing_id":"listing-1"}`),
			}}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/listings/listing-1/events", "", "")
	c.SetParamNames("id")
	c.SetParamValues("listing-1")

	require.NoError(t, NewListingHandler(&mockListingService{}, audit).ListEvents(c))
	var resp []dto.ListingEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "listing.created", resp[0].EventType)
	assert.JSONEq(t, `{"listing_id":"listing-1"}`, string(resp[0].Payload))
}
