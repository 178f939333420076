package dto

import "time"

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=HOSTEL VOLUNTEER"`
	Location string `json:"location" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

type CreateListingRequest struct {
	FoodType       string    `json:"food_type" validate:"required,oneof=VEG NON_VEG"`
	Quantity       int       `json:"quantity" validate:"required,gte=1"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Location       string    `json:"location" validate:"required"`
	AvailableUntil time.Time `json:"available_until" validate:"required"`
	ImageURL       string    `json:"image_url" validate:"omitempty,max=2048"`
}
