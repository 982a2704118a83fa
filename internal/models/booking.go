package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus for reservations.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

// PaymentStatus for reservations.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusPaid      = "PAID"
	PaymentStatusCancelled = "CANCELLED"
	PaymentStatusRefunded  = "REFUNDED"
)

// SelfCancelWindow is how long after creation a customer may cancel
// their own pending booking.
const SelfCancelWindow = 24 * time.Hour

// Booking is a reservation of N seats on a tour by a user.
type Booking struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	TourID           uuid.UUID  `json:"tour_id"`
	NumberOfPeople   int        `json:"number_of_people"`
	TotalAmount      float64    `json:"total_amount"`
	DiscountID       *uuid.UUID `json:"discount_id,omitempty"`
	BookingStatus    string     `json:"booking_status"`
	PaymentStatus    string     `json:"payment_status"`
	QRCode           string     `json:"qr_code,omitempty"`
	BookingReference string     `json:"booking_reference"`
	BookingDate      time.Time  `json:"booking_date"`
	Notes            string     `json:"notes,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsConfirmed reports whether the booking has been approved.
func (b *Booking) IsConfirmed() bool {
	return b.BookingStatus == BookingStatusConfirmed
}

// IsPaid reports whether payment has been recorded.
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}

// CanSelfCancel reports whether the owner may still cancel the booking:
// it must be PENDING and within SelfCancelWindow of creation.
func (b *Booking) CanSelfCancel(now time.Time) bool {
	return b.BookingStatus == BookingStatusPending &&
		now.Sub(b.BookingDate) <= SelfCancelWindow
}

// RemainingCancellationHours returns whole hours left in the self-cancel
// window, zero once it has elapsed.
func (b *Booking) RemainingCancellationHours(now time.Time) int {
	remaining := SelfCancelWindow - now.Sub(b.BookingDate)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Hour)
}
