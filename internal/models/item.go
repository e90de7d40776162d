package models

import "time"

type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Available   bool      `json:"available"`
	OwnerID     int64     `json:"owner_id" validate:"gt=0"`
	RequestID   *int64    `json:"request_id,omitempty" validate:"omitempty,gt=0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemUpdate carries a partial item update; nil fields stay unchanged.
type ItemUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

// ItemDetails is the item view with its availability summary and comments.
// LastBooking and NextBooking are only filled for the item owner.
type ItemDetails struct {
	Item
	LastBooking *BookingPeriod `json:"last_booking"`
	NextBooking *BookingPeriod `json:"next_booking"`
	Comments    []*Comment     `json:"comments"`
}
