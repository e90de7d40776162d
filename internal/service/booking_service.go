package service

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *BookingService {
	if clk == nil {
		clk = clock.System{}
	}
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		clock:    clk,
		logger:   logger,
	}
}

// validateAndBuildBooking checks creation invariants and returns an unsaved WAITING booking.
func (s *BookingService) validateAndBuildBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error) {
	booker, err := s.repo.GetUserByID(ctx, bookerID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !item.Available {
		metrics.IncValidationFailure("item_unavailable")
		return nil, fmt.Errorf("%w: item %d is not available", domain.ErrBadRequest, itemID)
	}

	if start.Equal(end) {
		metrics.IncValidationFailure("empty_window")
		return nil, fmt.Errorf("%w: start and end must differ", domain.ErrBadRequest)
	}

	now := s.clock.Now()
	if end.Before(now) || start.Before(now) {
		metrics.IncValidationFailure("past_window")
		return nil, fmt.Errorf("%w: booking window must not be in the past", domain.ErrBadRequest)
	}

	if end.Before(start) {
		metrics.IncValidationFailure("inverted_window")
		return nil, fmt.Errorf("%w: end must be after start", domain.ErrBadRequest)
	}

	return &models.Booking{
		ItemID:      item.ID,
		ItemName:    item.Name,
		ItemOwnerID: item.OwnerID,
		BookerID:    booker.ID,
		BookerName:  booker.Name,
		Start:       start.UTC(),
		End:         end.UTC(),
		Status:      models.StatusWaiting,
		CreatedAt:   now,
	}, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error) {
	booking, err := s.validateAndBuildBooking(ctx, bookerID, itemID, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("item_id", booking.ItemID).
		Int64("booker_id", booking.BookerID).
		Msg("Booking created")

	s.publishEvent(events.EventBookingCreated, booking, bookerID)
	return booking, nil
}

// SetStatus lets the item owner approve or reject a booking. Deciding an
// already decided booking again is allowed.
func (s *BookingService) SetStatus(ctx context.Context, bookingID, actingUserID int64, approve bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !CanDecideBooking(actingUserID, booking) {
		return nil, fmt.Errorf("%w: user %d does not own item %d", domain.ErrForbidden, actingUserID, booking.ItemID)
	}

	status := models.StatusRejected
	eventType := events.EventBookingRejected
	if approve {
		status = models.StatusApproved
		eventType = events.EventBookingApproved
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateBookingStatus(ctx, bookingID, status, now); err != nil {
		return nil, err
	}
	booking.Status = status
	booking.UpdatedAt = now

	metrics.IncBookingDecision(string(status))
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("owner_id", actingUserID).
		Str("status", string(status)).
		Msg("Booking decided")

	s.publishEvent(eventType, booking, actingUserID)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID, requestingUserID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !CanViewBooking(requestingUserID, booking) {
		return nil, fmt.Errorf("%w: user %d is neither booker nor owner of booking %d", domain.ErrForbidden, requestingUserID, bookingID)
	}
	return booking, nil
}

// ListForUser returns the user's own bookings matching state, newest start first.
func (s *BookingService) ListForUser(ctx context.Context, userID int64, state string) ([]*models.Booking, error) {
	return s.list(ctx, userID, state, s.repo.GetBookingsByBooker)
}

// ListForOwner returns bookings of the owner's items matching state, newest start first.
func (s *BookingService) ListForOwner(ctx context.Context, ownerID int64, state string) ([]*models.Booking, error) {
	return s.list(ctx, ownerID, state, s.repo.GetBookingsByItemOwner)
}

func (s *BookingService) list(
	ctx context.Context,
	userID int64,
	rawState string,
	fetch func(context.Context, int64) ([]*models.Booking, error),
) ([]*models.Booking, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	state, err := ParseBookingState(rawState)
	if err != nil {
		return nil, err
	}

	bookings, err := fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	return Classify(bookings, state, s.clock.Now()), nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		ItemName:  booking.ItemName,
		BookerID:  booking.BookerID,
		OwnerID:   booking.ItemOwnerID,
		Status:    string(booking.Status),
		Start:     booking.Start,
		End:       booking.End,
		ActorID:   actorID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("event", eventType).Msg("Failed to publish booking event")
	}
}
