package service

import (
	"context"
	"fmt"
	"strings"

	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"
	"shareit/internal/validation"

	"github.com/rs/zerolog"
)

type ItemService struct {
	repo       domain.Repository
	summarizer *AvailabilitySummarizer
	eventBus   domain.EventPublisher
	clock      clock.Clock
	logger     *zerolog.Logger
}

func NewItemService(repo domain.Repository, eventBus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *ItemService {
	if clk == nil {
		clk = clock.System{}
	}
	return &ItemService{
		repo:       repo,
		summarizer: NewAvailabilitySummarizer(repo),
		eventBus:   eventBus,
		clock:      clk,
		logger:     logger,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.OwnerID = ownerID
	if err := validation.Struct(item); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if item.RequestID != nil {
		if _, err := s.repo.GetItemRequest(ctx, *item.RequestID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("Item created")
	return item, nil
}

// UpdateItem applies the non-nil fields. An item owned by someone else is reported as not found.
func (s *ItemService) UpdateItem(ctx context.Context, ownerID, itemID int64, update models.ItemUpdate) (*models.Item, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !CanModifyItem(ownerID, item) {
		return nil, fmt.Errorf("%w: item %d of user %d", domain.ErrNotFound, itemID, ownerID)
	}

	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		item.Name = *update.Name
	}
	if update.Description != nil && strings.TrimSpace(*update.Description) != "" {
		item.Description = *update.Description
	}
	if update.Available != nil {
		item.Available = *update.Available
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns the item with comments; last and next bookings are filled only for the owner.
func (s *ItemService) GetItem(ctx context.Context, itemID, requestingUserID int64) (*models.ItemDetails, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	details := &models.ItemDetails{Item: *item}

	if CanViewSchedule(requestingUserID, item) {
		summary, err := s.summarizer.Summarize(ctx, itemID, s.clock.Now())
		if err != nil {
			return nil, err
		}
		details.LastBooking = summary.Last
		details.NextBooking = summary.Next
	}

	comments, err := s.repo.GetCommentsByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	details.Comments = nonNilComments(comments)
	return details, nil
}

// GetOwnerItems lists the owner's items with summaries and comments loaded in batch.
func (s *ItemService) GetOwnerItems(ctx context.Context, ownerID int64) ([]*models.ItemDetails, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []*models.ItemDetails{}, nil
	}

	itemIDs := make([]int64, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}

	summaries, err := s.summarizer.SummarizeAll(ctx, itemIDs, s.clock.Now())
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.GetCommentsByItemIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	commentsByItem := make(map[int64][]*models.Comment, len(items))
	for _, c := range comments {
		commentsByItem[c.ItemID] = append(commentsByItem[c.ItemID], c)
	}

	result := make([]*models.ItemDetails, 0, len(items))
	for _, item := range items {
		details := &models.ItemDetails{Item: *item, Comments: nonNilComments(commentsByItem[item.ID])}
		if summary := summaries[item.ID]; summary != nil {
			details.LastBooking = summary.Last
			details.NextBooking = summary.Next
		}
		result = append(result, details)
	}
	return result, nil
}

// SearchItems finds available items by text. Blank text yields an empty page.
func (s *ItemService) SearchItems(ctx context.Context, text string, from, size int) ([]*models.Item, error) {
	if from < 0 {
		return nil, fmt.Errorf("%w: from must not be negative", domain.ErrBadRequest)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", domain.ErrBadRequest)
	}
	if size > models.MaxSearchPageSize {
		size = models.MaxSearchPageSize
	}
	if strings.TrimSpace(text) == "" {
		return []*models.Item{}, nil
	}

	items, err := s.repo.SearchItems(ctx, strings.TrimSpace(text), size, from)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Item{}
	}
	return items, nil
}

func (s *ItemService) DeleteItem(ctx context.Context, ownerID, itemID int64) error {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	if !CanModifyItem(ownerID, item) {
		return fmt.Errorf("%w: user %d does not own item %d", domain.ErrForbidden, ownerID, itemID)
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", itemID).Int64("owner_id", ownerID).Msg("Item deleted")
	return nil
}

// AddComment is allowed only after the user finished an approved booking of the item.
func (s *ItemService) AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if err := validation.Var("text", text, "required"); err != nil {
		return nil, err
	}

	author, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	completed, err := s.repo.HasCompletedBooking(ctx, userID, itemID, now)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, fmt.Errorf("%w: user %d has no finished approved booking of item %d", domain.ErrBadRequest, userID, itemID)
	}

	comment := &models.Comment{
		ItemID:     itemID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       text,
		Created:    now,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.CommentEventPayload{CommentID: comment.ID, ItemID: itemID, AuthorID: userID, Text: text}
		if err := s.eventBus.PublishJSON(events.EventCommentAdded, payload); err != nil {
			s.logger.Error().Err(err).Int64("comment_id", comment.ID).Msg("Failed to publish comment event")
		}
	}
	return comment, nil
}

// ItemAvailability reports the last and next booking of one item as of now.
func (s *ItemService) ItemAvailability(ctx context.Context, itemID int64) (*models.AvailabilitySummary, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("%w: invalid item id %d", domain.ErrBadRequest, itemID)
	}
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.summarizer.Summarize(ctx, itemID, s.clock.Now())
}

// OwnerAvailability summarizes every item of the owner in item id order.
func (s *ItemService) OwnerAvailability(ctx context.Context, ownerID int64) ([]*models.AvailabilitySummary, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: invalid owner id %d", domain.ErrBadRequest, ownerID)
	}
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	items, err := s.repo.GetItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]int64, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	summaries, err := s.summarizer.SummarizeAll(ctx, itemIDs, s.clock.Now())
	if err != nil {
		return nil, err
	}

	result := make([]*models.AvailabilitySummary, 0, len(itemIDs))
	for _, id := range itemIDs {
		result = append(result, summaries[id])
	}
	return result, nil
}

func nonNilComments(comments []*models.Comment) []*models.Comment {
	if comments == nil {
		return []*models.Comment{}
	}
	return comments
}
