package models

// BookingState is the listing filter applied to a booker's or owner's bookings.
type BookingState string

const (
	StateAll      BookingState = "ALL"
	StateCurrent  BookingState = "CURRENT"
	StatePast     BookingState = "PAST"
	StateFuture   BookingState = "FUTURE"
	StateWaiting  BookingState = "WAITING"
	StateRejected BookingState = "REJECTED"
)

// BookingStates lists every accepted filter value.
var BookingStates = []BookingState{
	StateAll,
	StateCurrent,
	StatePast,
	StateFuture,
	StateWaiting,
	StateRejected,
}

const (
	// DefaultUserHeader carries the id of the acting user.
	DefaultUserHeader = "X-Sharer-User-Id"

	// TimestampLayout is the zone-less timestamp format accepted from clients, read as UTC.
	TimestampLayout = "2006-01-02T15:04:05"

	// DefaultSearchPageSize is used when a search request omits size.
	DefaultSearchPageSize = 10

	// DefaultRequestPageSize is used when a listing of other users' requests omits size.
	DefaultRequestPageSize = 15

	// MaxSearchPageSize caps the size of one search page.
	MaxSearchPageSize = 100

	// EventQueueSize is the default capacity of the event relay queue.
	EventQueueSize = 1000

	// RateLimitWindow is the shared rate limit window in seconds.
	RateLimitWindow = 60
)
