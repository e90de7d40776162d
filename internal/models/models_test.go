package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooking_Period(t *testing.T) {
	start := time.Date(2031, 6, 1, 10, 0, 0, 0, time.UTC)
	b := &Booking{
		ID:         7,
		ItemID:     3,
		ItemName:   "drill",
		BookerID:   12,
		BookerName: "Anna",
		Start:      start,
		End:        start.Add(2 * time.Hour),
		Status:     StatusApproved,
	}

	p := b.Period()
	assert.Equal(t, &BookingPeriod{ID: 7, BookerID: 12, Start: start, End: start.Add(2 * time.Hour)}, p)

	p.End = start
	assert.Equal(t, start.Add(2*time.Hour), b.End)
}

func TestItemDetails_JSON(t *testing.T) {
	details := ItemDetails{
		Item:     Item{ID: 1, Name: "drill", Available: true, OwnerID: 2},
		Comments: []*Comment{},
	}

	data, err := json.Marshal(details)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "drill", decoded["name"])
	assert.Nil(t, decoded["last_booking"])
	assert.Nil(t, decoded["next_booking"])
	assert.Contains(t, decoded, "last_booking")
	assert.NotContains(t, decoded, "request_id")
	assert.Equal(t, []interface{}{}, decoded["comments"])
}

func TestBookingStates(t *testing.T) {
	assert.Len(t, BookingStates, 6)
	assert.Contains(t, BookingStates, StateAll)
	assert.Contains(t, BookingStates, StateRejected)
}
