package models

import "time"

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

type Booking struct {
	ID          int64         `json:"id"`
	ItemID      int64         `json:"item_id"`
	ItemName    string        `json:"item_name"`
	ItemOwnerID int64         `json:"item_owner_id"`
	BookerID    int64         `json:"booker_id"`
	BookerName  string        `json:"booker_name"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Period projects the booking onto the fields shown in availability summaries.
func (b *Booking) Period() *BookingPeriod {
	return &BookingPeriod{
		ID:       b.ID,
		BookerID: b.BookerID,
		Start:    b.Start,
		End:      b.End,
	}
}

type BookingPeriod struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"booker_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// AvailabilitySummary holds the most recent finished and the nearest upcoming booking of an item.
type AvailabilitySummary struct {
	ItemID int64          `json:"item_id"`
	Last   *BookingPeriod `json:"last_booking"`
	Next   *BookingPeriod `json:"next_booking"`
}
