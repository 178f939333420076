package dto

import (
	"encoding/json"
	"time"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ReservationRecordResponse struct {
	UserID     string    `json:"user_id"`
	ReservedAt time.Time `json:"reserved_at"`
	Expired    bool      `json:"expired"`
}

type ListingResponse struct {
	ID                 string                      `json:"id"`
	HostelID           string                      `json:"hostel_id"`
	FoodType           string                      `json:"food_type"`
	Quantity           int                         `json:"quantity"`
	Name               string                      `json:"name"`
	Description        string                      `json:"description"`
	Location           string                      `json:"location"`
	AvailableUntil     time.Time                   `json:"available_until"`
	ImageURL           string                      `json:"image_url,omitempty"`
	Status             string                      `json:"status"`
	ReservedBy         *string                     `json:"reserved_by"`
	ReservedAt         *time.Time                  `json:"reserved_at"`
	CollectedBy        *string                     `json:"collected_by"`
	ReservationHistory []ReservationRecordResponse `json:"reservation_history"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

type AccountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Location string `json:"location"`
}

type AuthResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

type ListingEventResponse struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func ToListingResponse(l *models.Listing) ListingResponse {
	history := make([]ReservationRecordResponse, len(l.History))
	for i, rec := range l.History {
		history[i] = ReservationRecordResponse{
			UserID:     rec.UserID,
			ReservedAt: rec.ReservedAt,
			Expired:    rec.Expired,
		}
	}

	return ListingResponse{
		ID:                 l.ID,
		HostelID:           l.HostelID,
		FoodType:           string(l.FoodType),
		Quantity:           l.Quantity,
		Name:               l.Name,
		Description:        l.Description,
		Location:           l.Location,
		AvailableUntil:     l.AvailableUntil,
		ImageURL:           l.ImageURL,
		Status:             string(l.Status),
		ReservedBy:         l.ReservedBy,
		ReservedAt:         l.ReservedAt,
		CollectedBy:        l.CollectedBy,
		ReservationHistory: history,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

func ToListingResponses(listings []models.Listing) []ListingResponse {
	resp := make([]ListingResponse, len(listings))
	for i := range listings {
		resp[i] = ToListingResponse(&listings[i])
	}
	return resp
}

func ToAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:       a.ID,
		Name:     a.Name,
		Email:    a.Email,
		Role:     string(a.Role),
		Location: a.Location,
	}
}

func ToListingEventResponse(e *models.ListingEvent) ListingEventResponse {
	return ListingEventResponse{
		EventID:    e.EventID,
		EventType:  e.EventType,
		Producer:   e.Producer,
		Payload:    json.RawMessage(e.EventData),
		OccurredAt: e.OccurredAt,
	}
}
