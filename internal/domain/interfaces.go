package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus, at time.Time) error
	GetBookingsByBooker(ctx context.Context, bookerID int64) ([]*models.Booking, error)
	GetBookingsByItemOwner(ctx context.Context, ownerID int64) ([]*models.Booking, error)
	GetBookingsByItemIDs(ctx context.Context, itemIDs []int64) ([]*models.Booking, error)
	GetNextBooking(ctx context.Context, itemID int64, now time.Time) (*models.BookingPeriod, error)
	GetLastBooking(ctx context.Context, itemID int64, now time.Time) (*models.BookingPeriod, error)
	HasCompletedBooking(ctx context.Context, bookerID, itemID int64, before time.Time) (bool, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string, limit, offset int) ([]*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id int64) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
	GetCommentsByItemIDs(ctx context.Context, itemIDs []int64) ([]*models.Comment, error)
}

type ItemRequestRepository interface {
	CreateItemRequest(ctx context.Context, request *models.ItemRequest) error
	GetItemRequest(ctx context.Context, id int64) (*models.ItemRequest, error)
	GetItemRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	GetOtherItemRequests(ctx context.Context, userID int64, limit, offset int) ([]*models.ItemRequest, error)
	DeleteItemRequest(ctx context.Context, id int64) error
	GetItemsByRequestIDs(ctx context.Context, requestIDs []int64) ([]*models.Item, error)
}

// Repository is the full persistence surface implemented by the database package.
type Repository interface {
	BookingRepository
	UserRepository
	ItemRepository
	CommentRepository
	ItemRequestRepository
}

type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error)
	SetStatus(ctx context.Context, bookingID, actingUserID int64, approve bool) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID, requestingUserID int64) (*models.Booking, error)
	ListForUser(ctx context.Context, userID int64, state string) ([]*models.Booking, error)
	ListForOwner(ctx context.Context, ownerID int64, state string) ([]*models.Booking, error)
}

type UserService interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type ItemService interface {
	CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, ownerID, itemID int64, update models.ItemUpdate) (*models.Item, error)
	GetItem(ctx context.Context, itemID, requestingUserID int64) (*models.ItemDetails, error)
	GetOwnerItems(ctx context.Context, ownerID int64) ([]*models.ItemDetails, error)
	SearchItems(ctx context.Context, text string, from, size int) ([]*models.Item, error)
	DeleteItem(ctx context.Context, ownerID, itemID int64) error
	AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error)
	ItemAvailability(ctx context.Context, itemID int64) (*models.AvailabilitySummary, error)
	OwnerAvailability(ctx context.Context, ownerID int64) ([]*models.AvailabilitySummary, error)
}

type ItemRequestService interface {
	CreateRequest(ctx context.Context, userID int64, description string) (*models.ItemRequest, error)
	GetOwnRequests(ctx context.Context, userID int64) ([]*models.ItemRequest, error)
	GetOtherRequests(ctx context.Context, userID int64, from, size int) ([]*models.ItemRequest, error)
	GetRequest(ctx context.Context, userID, requestID int64) (*models.ItemRequest, error)
	DeleteRequest(ctx context.Context, userID, requestID int64) error
}
