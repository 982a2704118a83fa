package models

import (
	"time"

	"github.com/google/uuid"
)

// Tour is a bookable travel package with fixed capacity, price and schedule.
type Tour struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	ImageURL        string    `json:"image_url,omitempty"`
	Location        string    `json:"location"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Description     string    `json:"description,omitempty"`
	CostPerPerson   float64   `json:"cost_per_person"`
	Capacity        int       `json:"capacity"`
	CurrentBookings int       `json:"current_bookings"`
	DurationDays    int       `json:"duration_days"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AvailableSlots returns the remaining bookable seats.
func (t *Tour) AvailableSlots() int {
	return t.Capacity - t.CurrentBookings
}

// HasAvailableSlots reports whether any seats remain.
func (t *Tour) HasAvailableSlots() bool {
	return t.CurrentBookings < t.Capacity
}

// TotalCost returns the undiscounted price for a party of the given size.
func (t *Tour) TotalCost(people int) float64 {
	return t.CostPerPerson * float64(people)
}
