package service

import (
	"context"
	"fmt"
	"strings"

	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/validation"

	"github.com/rs/zerolog"
)

// ItemRequestService manages requests for items nobody offers yet.
type ItemRequestService struct {
	repo   domain.Repository
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewItemRequestService(repo domain.Repository, clk clock.Clock, logger *zerolog.Logger) *ItemRequestService {
	if clk == nil {
		clk = clock.System{}
	}
	return &ItemRequestService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

func (s *ItemRequestService) CreateRequest(ctx context.Context, userID int64, description string) (*models.ItemRequest, error) {
	request := &models.ItemRequest{
		Description: strings.TrimSpace(description),
		RequesterID: userID,
		Created:     s.clock.Now(),
	}
	if err := validation.Struct(request); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.CreateItemRequest(ctx, request); err != nil {
		return nil, err
	}
	request.Items = []*models.Item{}

	s.logger.Info().Int64("request_id", request.ID).Int64("user_id", userID).Msg("Item request created")
	return request, nil
}

// GetOwnRequests lists the user's requests, newest first, with the items answering them.
func (s *ItemRequestService) GetOwnRequests(ctx context.Context, userID int64) ([]*models.ItemRequest, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	requests, err := s.repo.GetItemRequestsByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, requests)
}

// GetOtherRequests pages through other users' requests, newest first. from is an offset.
func (s *ItemRequestService) GetOtherRequests(ctx context.Context, userID int64, from, size int) ([]*models.ItemRequest, error) {
	if from < 0 {
		return nil, fmt.Errorf("%w: from must not be negative", domain.ErrBadRequest)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", domain.ErrBadRequest)
	}
	if size > models.MaxSearchPageSize {
		size = models.MaxSearchPageSize
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	requests, err := s.repo.GetOtherItemRequests(ctx, userID, size, from)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, requests)
}

func (s *ItemRequestService) GetRequest(ctx context.Context, userID, requestID int64) (*models.ItemRequest, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	request, err := s.repo.GetItemRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	filled, err := s.withItems(ctx, []*models.ItemRequest{request})
	if err != nil {
		return nil, err
	}
	return filled[0], nil
}

// DeleteRequest removes a request; only its requester may do so.
func (s *ItemRequestService) DeleteRequest(ctx context.Context, userID, requestID int64) error {
	request, err := s.repo.GetItemRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.RequesterID != userID {
		return fmt.Errorf("%w: user %d did not create item request %d", domain.ErrForbidden, userID, requestID)
	}
	if err := s.repo.DeleteItemRequest(ctx, requestID); err != nil {
		return err
	}
	s.logger.Info().Int64("request_id", requestID).Int64("user_id", userID).Msg("Item request deleted")
	return nil
}

// withItems attaches answering items to every request with a single query.
func (s *ItemRequestService) withItems(ctx context.Context, requests []*models.ItemRequest) ([]*models.ItemRequest, error) {
	if len(requests) == 0 {
		return []*models.ItemRequest{}, nil
	}

	ids := make([]int64, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ID)
	}
	items, err := s.repo.GetItemsByRequestIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byRequest := make(map[int64][]*models.Item, len(requests))
	for _, item := range items {
		if item.RequestID != nil {
			byRequest[*item.RequestID] = append(byRequest[*item.RequestID], item)
		}
	}
	for _, r := range requests {
		r.Items = byRequest[r.ID]
		if r.Items == nil {
			r.Items = []*models.Item{}
		}
	}
	return requests, nil
}
