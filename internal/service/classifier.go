package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

// ParseBookingState accepts any letter case; an empty filter means ALL.
func ParseBookingState(raw string) (models.BookingState, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.StateAll, nil
	}
	state := models.BookingState(strings.ToUpper(trimmed))
	for _, known := range models.BookingStates {
		if state == known {
			return state, nil
		}
	}
	return "", fmt.Errorf("%w: State %s not found", domain.ErrInvalidArgument, raw)
}

// Matches reports whether the booking belongs to the state at instant now.
// Temporal states ignore status and status states ignore time.
func Matches(state models.BookingState, b *models.Booking, now time.Time) bool {
	switch state {
	case models.StateAll:
		return true
	case models.StatePast:
		return b.End.Before(now)
	case models.StateFuture:
		return b.Start.After(now)
	case models.StateCurrent:
		return b.Start.Before(now) && b.End.After(now)
	case models.StateWaiting:
		return b.Status == models.StatusWaiting
	case models.StateRejected:
		return b.Status == models.StatusRejected
	default:
		return false
	}
}

// Classify filters bookings by state and orders them by start, newest first.
// Bookings with equal start keep their input order.
func Classify(bookings []*models.Booking, state models.BookingState, now time.Time) []*models.Booking {
	result := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if Matches(state, b, now) {
			result = append(result, b)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Start.After(result[j].Start)
	})
	return result
}
