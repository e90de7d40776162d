package service

import (
	"context"
	"io"
	"testing"
	"time"

	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestItemService(repo *mockRepo, bus *mockEventBus) *ItemService {
	logger := zerolog.New(io.Discard)
	if bus == nil {
		return NewItemService(repo, nil, clock.NewFixed(testNow), &logger)
	}
	return NewItemService(repo, bus, clock.NewFixed(testNow), &logger)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestItemService_CreateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)

		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
		repo.On("CreateItem", mock.Anything, mock.AnythingOfType("*models.Item")).
			Run(func(args mock.Arguments) { args.Get(1).(*models.Item).ID = 5 }).
			Return(nil).Once()

		item, err := svc.CreateItem(ctx, 1, &models.Item{Name: "Drill", Available: true})
		require.NoError(t, err)
		assert.Equal(t, int64(5), item.ID)
		assert.Equal(t, int64(1), item.OwnerID)
	})

	t.Run("UnknownOwner", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.CreateItem(ctx, 1, &models.Item{Name: "Drill"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		repo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
	})

	t.Run("BlankName", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)

		_, err := svc.CreateItem(ctx, 1, &models.Item{Name: "  "})
		assert.ErrorIs(t, err, domain.ErrBadRequest)
		assert.Contains(t, err.Error(), "name is required")
		repo.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("AnswersRequest", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		requestID := int64(7)

		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
		repo.On("GetItemRequest", mock.Anything, requestID).Return(&models.ItemRequest{ID: requestID, RequesterID: 2}, nil).Once()
		repo.On("CreateItem", mock.Anything, mock.AnythingOfType("*models.Item")).Return(nil).Once()

		item, err := svc.CreateItem(ctx, 1, &models.Item{Name: "Ladder", Available: true, RequestID: &requestID})
		require.NoError(t, err)
		assert.Equal(t, requestID, *item.RequestID)
		repo.AssertExpectations(t)
	})

	t.Run("UnknownRequest", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		requestID := int64(7)

		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
		repo.On("GetItemRequest", mock.Anything, requestID).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.CreateItem(ctx, 1, &models.Item{Name: "Ladder", RequestID: &requestID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		repo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
	})
}

func TestItemService_UpdateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("PartialUpdate", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		item := &models.Item{ID: 5, Name: "Drill", Description: "Old", Available: true, OwnerID: 1}

		repo.On("GetItemByID", mock.Anything, int64(5)).Return(item, nil).Once()
		repo.On("UpdateItem", mock.Anything, item).Return(nil).Once()

		updated, err := svc.UpdateItem(ctx, 1, 5, models.ItemUpdate{
			Name:      strPtr(""),
			Available: boolPtr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, "Drill", updated.Name)
		assert.Equal(t, "Old", updated.Description)
		assert.False(t, updated.Available)
	})

	t.Run("WrongOwner", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		repo.On("GetItemByID", mock.Anything, int64(5)).Return(&models.Item{ID: 5, OwnerID: 1}, nil).Once()

		_, err := svc.UpdateItem(ctx, 2, 5, models.ItemUpdate{Name: strPtr("Saw")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		repo.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})
}

func TestItemService_GetItem(t *testing.T) {
	ctx := context.Background()
	item := &models.Item{ID: 5, Name: "Drill", OwnerID: 1}
	last := &models.BookingPeriod{ID: 1, BookerID: 2, Start: testNow.Add(-48 * time.Hour), End: testNow.Add(-24 * time.Hour)}
	next := &models.BookingPeriod{ID: 2, BookerID: 3, Start: testNow.Add(24 * time.Hour), End: testNow.Add(48 * time.Hour)}

	t.Run("OwnerSeesSchedule", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)

		repo.On("GetItemByID", mock.Anything, int64(5)).Return(item, nil).Once()
		repo.On("GetLastBooking", mock.Anything, int64(5), testNow).Return(last, nil).Once()
		repo.On("GetNextBooking", mock.Anything, int64(5), testNow).Return(next, nil).Once()
		repo.On("GetCommentsByItem", mock.Anything, int64(5)).Return(nil, nil).Once()

		details, err := svc.GetItem(ctx, 5, 1)
		require.NoError(t, err)
		assert.Equal(t, last, details.LastBooking)
		assert.Equal(t, next, details.NextBooking)
		assert.NotNil(t, details.Comments)
		assert.Empty(t, details.Comments)
	})

	t.Run("OtherUserSeesNoSchedule", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		comments := []*models.Comment{{ID: 1, ItemID: 5, Text: "Nice"}}

		repo.On("GetItemByID", mock.Anything, int64(5)).Return(item, nil).Once()
		repo.On("GetCommentsByItem", mock.Anything, int64(5)).Return(comments, nil).Once()

		details, err := svc.GetItem(ctx, 5, 2)
		require.NoError(t, err)
		assert.Nil(t, details.LastBooking)
		assert.Nil(t, details.NextBooking)
		assert.Len(t, details.Comments, 1)
		repo.AssertNotCalled(t, "GetLastBooking", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestItemService_GetOwnerItems(t *testing.T) {
	ctx := context.Background()

	t.Run("BatchSummaries", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		items := []*models.Item{{ID: 5, OwnerID: 1}, {ID: 6, OwnerID: 1}}
		bookings := []*models.Booking{
			{ID: 1, ItemID: 5, BookerID: 2, Start: testNow.Add(-3 * time.Hour), End: testNow.Add(-2 * time.Hour)},
			{ID: 2, ItemID: 5, BookerID: 2, Start: testNow.Add(2 * time.Hour), End: testNow.Add(3 * time.Hour)},
		}
		comments := []*models.Comment{{ID: 1, ItemID: 6, Text: "Good"}}

		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
		repo.On("GetItemsByOwner", mock.Anything, int64(1)).Return(items, nil).Once()
		repo.On("GetBookingsByItemIDs", mock.Anything, []int64{5, 6}).Return(bookings, nil).Once()
		repo.On("GetCommentsByItemIDs", mock.Anything, []int64{5, 6}).Return(comments, nil).Once()

		result, err := svc.GetOwnerItems(ctx, 1)
		require.NoError(t, err)
		require.Len(t, result, 2)

		assert.Equal(t, int64(1), result[0].LastBooking.ID)
		assert.Equal(t, int64(2), result[0].NextBooking.ID)
		assert.Empty(t, result[0].Comments)
		assert.Nil(t, result[1].LastBooking)
		assert.Nil(t, result[1].NextBooking)
		assert.Len(t, result[1].Comments, 1)
	})

	t.Run("NoItems", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
		repo.On("GetItemsByOwner", mock.Anything, int64(1)).Return(nil, nil).Once()

		result, err := svc.GetOwnerItems(ctx, 1)
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
		repo.AssertNotCalled(t, "GetBookingsByItemIDs", mock.Anything, mock.Anything)
	})

	t.Run("UnknownOwner", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.GetOwnerItems(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestItemService_ItemAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("Summary", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		next := &models.BookingPeriod{ID: 2, BookerID: 3, Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour)}

		repo.On("GetItemByID", mock.Anything, int64(5)).Return(&models.Item{ID: 5, OwnerID: 1}, nil).Once()
		repo.On("GetLastBooking", mock.Anything, int64(5), testNow).Return(nil, nil).Once()
		repo.On("GetNextBooking", mock.Anything, int64(5), testNow).Return(next, nil).Once()

		summary, err := svc.ItemAvailability(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), summary.ItemID)
		assert.Nil(t, summary.Last)
		assert.Equal(t, next, summary.Next)
	})

	t.Run("MissingItem", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		repo.On("GetItemByID", mock.Anything, int64(5)).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.ItemAvailability(ctx, 5)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("InvalidID", func(t *testing.T) {
		_, err := newTestItemService(new(mockRepo), nil).ItemAvailability(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})
}

func TestItemService_OwnerAvailability(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestItemService(repo, nil)
	ctx := context.Background()
	bookings := []*models.Booking{
		{ID: 1, ItemID: 6, BookerID: 2, Start: testNow.Add(-3 * time.Hour), End: testNow.Add(-2 * time.Hour)},
	}

	repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
	repo.On("GetItemsByOwner", mock.Anything, int64(1)).Return([]*models.Item{{ID: 5}, {ID: 6}}, nil).Once()
	repo.On("GetBookingsByItemIDs", mock.Anything, []int64{5, 6}).Return(bookings, nil).Once()

	summaries, err := svc.OwnerAvailability(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, int64(5), summaries[0].ItemID)
	assert.Nil(t, summaries[0].Last)
	assert.Equal(t, int64(1), summaries[1].Last.ID)
}

func TestItemService_SearchItems(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newTestItemService(repo, nil)

	_, err := svc.SearchItems(ctx, "drill", -1, 10)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = svc.SearchItems(ctx, "drill", 0, 0)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	result, err := svc.SearchItems(ctx, "   ", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, result)

	repo.On("SearchItems", mock.Anything, "drill", models.MaxSearchPageSize, 20).
		Return([]*models.Item{{ID: 5}}, nil).Once()
	result, err = svc.SearchItems(ctx, " drill ", 20, 500)
	require.NoError(t, err)
	assert.Len(t, result, 1)
	repo.AssertExpectations(t)
}

func TestItemService_DeleteItem(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newTestItemService(repo, nil)

	repo.On("GetItemByID", mock.Anything, int64(5)).Return(&models.Item{ID: 5, OwnerID: 1}, nil)

	err := svc.DeleteItem(ctx, 2, 5)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	repo.On("DeleteItem", mock.Anything, int64(5)).Return(nil).Once()
	require.NoError(t, svc.DeleteItem(ctx, 1, 5))
	repo.AssertExpectations(t)
}

func TestItemService_AddComment(t *testing.T) {
	ctx := context.Background()
	author := &models.User{ID: 2, Name: "Booker"}
	item := &models.Item{ID: 5, OwnerID: 1}

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := newTestItemService(repo, bus)

		repo.On("GetUserByID", mock.Anything, int64(2)).Return(author, nil).Once()
		repo.On("GetItemByID", mock.Anything, int64(5)).Return(item, nil).Once()
		repo.On("HasCompletedBooking", mock.Anything, int64(2), int64(5), testNow).Return(true, nil).Once()
		repo.On("CreateComment", mock.Anything, mock.AnythingOfType("*models.Comment")).
			Run(func(args mock.Arguments) { args.Get(1).(*models.Comment).ID = 9 }).
			Return(nil).Once()
		bus.On("PublishJSON", events.EventCommentAdded, mock.Anything).Return(nil).Once()

		comment, err := svc.AddComment(ctx, 2, 5, "Works well")
		require.NoError(t, err)
		assert.Equal(t, int64(9), comment.ID)
		assert.Equal(t, "Booker", comment.AuthorName)
		assert.True(t, comment.Created.Equal(testNow))
		bus.AssertExpectations(t)
	})

	t.Run("NoFinishedBooking", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)

		repo.On("GetUserByID", mock.Anything, int64(2)).Return(author, nil).Once()
		repo.On("GetItemByID", mock.Anything, int64(5)).Return(item, nil).Once()
		repo.On("HasCompletedBooking", mock.Anything, int64(2), int64(5), testNow).Return(false, nil).Once()

		_, err := svc.AddComment(ctx, 2, 5, "Works well")
		assert.ErrorIs(t, err, domain.ErrBadRequest)
		repo.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything)
	})

	t.Run("BlankText", func(t *testing.T) {
		svc := newTestItemService(new(mockRepo), nil)
		_, err := svc.AddComment(ctx, 2, 5, " ")
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})

	t.Run("UnknownItem", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestItemService(repo, nil)
		repo.On("GetUserByID", mock.Anything, int64(2)).Return(author, nil).Once()
		repo.On("GetItemByID", mock.Anything, int64(5)).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.AddComment(ctx, 2, 5, "Works well")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
