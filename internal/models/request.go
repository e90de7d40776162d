package models

import "time"

// ItemRequest is a user's ask for an item nobody offers yet. Items is filled
// with the items other users created in answer to it.
type ItemRequest struct {
	ID          int64     `json:"id"`
	Description string    `json:"description" validate:"required"`
	RequesterID int64     `json:"requester_id" validate:"gt=0"`
	Created     time.Time `json:"created"`
	Items       []*Item   `json:"items"`
}
