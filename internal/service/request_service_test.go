package service

import (
	"context"
	"io"
	"testing"

	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRequestService(repo *mockRepo) *ItemRequestService {
	logger := zerolog.New(io.Discard)
	return NewItemRequestService(repo, clock.NewFixed(testNow), &logger)
}

func TestItemRequestService_CreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)

		repo.On("GetUserByID", mock.Anything, int64(2)).Return(&models.User{ID: 2}, nil).Once()
		repo.On("CreateItemRequest", mock.Anything, mock.AnythingOfType("*models.ItemRequest")).
			Run(func(args mock.Arguments) { args.Get(1).(*models.ItemRequest).ID = 9 }).
			Return(nil).Once()

		request, err := svc.CreateRequest(ctx, 2, "  Need a ladder ")
		require.NoError(t, err)
		assert.Equal(t, int64(9), request.ID)
		assert.Equal(t, "Need a ladder", request.Description)
		assert.True(t, request.Created.Equal(testNow))
		assert.NotNil(t, request.Items)
	})

	t.Run("BlankDescription", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)

		_, err := svc.CreateRequest(ctx, 2, "   ")
		assert.ErrorIs(t, err, domain.ErrBadRequest)
		assert.Contains(t, err.Error(), "description is required")
		repo.AssertNotCalled(t, "CreateItemRequest", mock.Anything, mock.Anything)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)
		repo.On("GetUserByID", mock.Anything, int64(2)).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.CreateRequest(ctx, 2, "Need a ladder")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestItemRequestService_GetOwnRequests(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestRequestService(repo)
	ctx := context.Background()

	first, second := int64(3), int64(4)
	requests := []*models.ItemRequest{{ID: second, RequesterID: 2}, {ID: first, RequesterID: 2}}
	items := []*models.Item{
		{ID: 10, Name: "Ladder", RequestID: &first},
		{ID: 11, Name: "Step ladder", RequestID: &first},
	}

	repo.On("GetUserByID", mock.Anything, int64(2)).Return(&models.User{ID: 2}, nil).Once()
	repo.On("GetItemRequestsByRequester", mock.Anything, int64(2)).Return(requests, nil).Once()
	repo.On("GetItemsByRequestIDs", mock.Anything, []int64{second, first}).Return(items, nil).Once()

	got, err := svc.GetOwnRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Items)
	assert.NotNil(t, got[0].Items)
	assert.Len(t, got[1].Items, 2)
	repo.AssertExpectations(t)
}

func TestItemRequestService_GetOtherRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("CapsPageSize", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)

		repo.On("GetUserByID", mock.Anything, int64(2)).Return(&models.User{ID: 2}, nil).Once()
		repo.On("GetOtherItemRequests", mock.Anything, int64(2), models.MaxSearchPageSize, 5).Return(nil, nil).Once()

		got, err := svc.GetOtherRequests(ctx, 2, 5, 1000)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
		repo.AssertExpectations(t)
	})

	tests := []struct {
		name       string
		from, size int
	}{
		{"negative from", -1, 10},
		{"zero size", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			svc := newTestRequestService(repo)

			_, err := svc.GetOtherRequests(ctx, 2, tt.from, tt.size)
			assert.ErrorIs(t, err, domain.ErrBadRequest)
		})
	}
}

func TestItemRequestService_GetRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("WithItems", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)
		id := int64(3)

		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
		repo.On("GetItemRequest", mock.Anything, id).Return(&models.ItemRequest{ID: id, RequesterID: 2}, nil).Once()
		repo.On("GetItemsByRequestIDs", mock.Anything, []int64{id}).
			Return([]*models.Item{{ID: 10, RequestID: &id}}, nil).Once()

		request, err := svc.GetRequest(ctx, 1, id)
		require.NoError(t, err)
		require.Len(t, request.Items, 1)
		assert.Equal(t, int64(10), request.Items[0].ID)
	})

	t.Run("Missing", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)

		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Once()
		repo.On("GetItemRequest", mock.Anything, int64(3)).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.GetRequest(ctx, 1, 3)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestItemRequestService_DeleteRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Requester", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)

		repo.On("GetItemRequest", mock.Anything, int64(3)).Return(&models.ItemRequest{ID: 3, RequesterID: 2}, nil).Once()
		repo.On("DeleteItemRequest", mock.Anything, int64(3)).Return(nil).Once()

		require.NoError(t, svc.DeleteRequest(ctx, 2, 3))
		repo.AssertExpectations(t)
	})

	t.Run("Stranger", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestRequestService(repo)

		repo.On("GetItemRequest", mock.Anything, int64(3)).Return(&models.ItemRequest{ID: 3, RequesterID: 2}, nil).Once()

		err := svc.DeleteRequest(ctx, 1, 3)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		repo.AssertNotCalled(t, "DeleteItemRequest", mock.Anything, mock.Anything)
	})
}
