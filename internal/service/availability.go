package service

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

// AvailabilitySummarizer derives the last and next booking of items.
type AvailabilitySummarizer struct {
	repo domain.BookingRepository
}

func NewAvailabilitySummarizer(repo domain.BookingRepository) *AvailabilitySummarizer {
	return &AvailabilitySummarizer{repo: repo}
}

// Summarize answers for a single item with two indexed lookups.
func (a *AvailabilitySummarizer) Summarize(ctx context.Context, itemID int64, now time.Time) (*models.AvailabilitySummary, error) {
	last, err := a.repo.GetLastBooking(ctx, itemID, now)
	if err != nil {
		return nil, fmt.Errorf("last booking of item %d: %w", itemID, err)
	}
	next, err := a.repo.GetNextBooking(ctx, itemID, now)
	if err != nil {
		return nil, fmt.Errorf("next booking of item %d: %w", itemID, err)
	}
	return &models.AvailabilitySummary{ItemID: itemID, Last: last, Next: next}, nil
}

// SummarizeAll loads the bookings of all items with one query and reduces them per item.
func (a *AvailabilitySummarizer) SummarizeAll(ctx context.Context, itemIDs []int64, now time.Time) (map[int64]*models.AvailabilitySummary, error) {
	if len(itemIDs) == 0 {
		return map[int64]*models.AvailabilitySummary{}, nil
	}
	bookings, err := a.repo.GetBookingsByItemIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("bookings of %d items: %w", len(itemIDs), err)
	}
	return SummarizeBookings(itemIDs, bookings, now), nil
}

// SummarizeBookings groups bookings by item and picks, per item, the latest
// end before now and the earliest start after now. Ties go to the lower id.
// Every requested item gets an entry, empty when it has no bookings.
func SummarizeBookings(itemIDs []int64, bookings []*models.Booking, now time.Time) map[int64]*models.AvailabilitySummary {
	summaries := make(map[int64]*models.AvailabilitySummary, len(itemIDs))
	for _, id := range itemIDs {
		summaries[id] = &models.AvailabilitySummary{ItemID: id}
	}

	last := make(map[int64]*models.Booking)
	next := make(map[int64]*models.Booking)

	for _, b := range bookings {
		if _, ok := summaries[b.ItemID]; !ok {
			continue
		}
		if b.End.Before(now) {
			cur := last[b.ItemID]
			if cur == nil || b.End.After(cur.End) || (b.End.Equal(cur.End) && b.ID < cur.ID) {
				last[b.ItemID] = b
			}
		}
		if b.Start.After(now) {
			cur := next[b.ItemID]
			if cur == nil || b.Start.Before(cur.Start) || (b.Start.Equal(cur.Start) && b.ID < cur.ID) {
				next[b.ItemID] = b
			}
		}
	}

	for id, b := range last {
		summaries[id].Last = b.Period()
	}
	for id, b := range next {
		summaries[id].Next = b.Period()
	}
	return summaries
}
