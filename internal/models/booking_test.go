package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanSelfCancel(t *testing.T) {
	now := time.Now()
	b := Booking{
		BookingStatus: BookingStatusPending,
		BookingDate:   now.Add(-2 * time.Hour),
	}

	assert.True(t, b.CanSelfCancel(now))

	// Outside the window.
	b.BookingDate = now.Add(-25 * time.Hour)
	assert.False(t, b.CanSelfCancel(now))

	// Confirmed bookings are never self-cancellable, even fresh ones.
	b.BookingDate = now.Add(-time.Hour)
	b.BookingStatus = BookingStatusConfirmed
	assert.False(t, b.CanSelfCancel(now))

	b.BookingStatus = BookingStatusCancelled
	assert.False(t, b.CanSelfCancel(now))
}

func TestRemainingCancellationHours(t *testing.T) {
	now := time.Now()
	b := Booking{
		BookingStatus: BookingStatusPending,
		BookingDate:   now.Add(-2 * time.Hour),
	}

	assert.Equal(t, 22, b.RemainingCancellationHours(now))

	b.BookingDate = now.Add(-30 * time.Hour)
	assert.Equal(t, 0, b.RemainingCancellationHours(now))

	b.BookingDate = now
	assert.Equal(t, 24, b.RemainingCancellationHours(now))
}

func TestTourAvailability(t *testing.T) {
	tour := Tour{Capacity: 20, CurrentBookings: 18, CostPerPerson: 99.5}

	assert.Equal(t, 2, tour.AvailableSlots())
	assert.True(t, tour.HasAvailableSlots())
	assert.Equal(t, 199.0, tour.TotalCost(2))

	tour.CurrentBookings = 20
	assert.Equal(t, 0, tour.AvailableSlots())
	assert.False(t, tour.HasAvailableSlots())
}
