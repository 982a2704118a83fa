package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType is percentage or fixed amount.
const (
	DiscountTypePercentage  = "PERCENTAGE"
	DiscountTypeFixedAmount = "FIXED_AMOUNT"
)

// Discount is a promotional rule reducing a booking's total price,
// either global (TourID nil) or scoped to a single tour.
type Discount struct {
	ID                uuid.UUID  `json:"id"`
	TourID            *uuid.UUID `json:"tour_id,omitempty"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Type              string     `json:"type"`
	Value             float64    `json:"value"`
	MaxDiscountAmount float64    `json:"max_discount_amount"`
	MinOrderAmount    float64    `json:"min_order_amount"`
	Code              string     `json:"code,omitempty"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	IsActive          bool       `json:"is_active"`
	UsageLimit        int        `json:"usage_limit"`
	CurrentUsage      int        `json:"current_usage"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsValid reports whether the discount is active, inside its date window
// and under its usage limit at the given instant.
func (d *Discount) IsValid(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if now.Before(d.StartDate) || now.After(d.EndDate) {
		return false
	}
	return d.WithinUsageLimit()
}

// WithinUsageLimit reports whether usage remains. A limit of zero or less
// means unlimited.
func (d *Discount) WithinUsageLimit() bool {
	return d.UsageLimit <= 0 || d.CurrentUsage < d.UsageLimit
}

// RemainingUses returns remaining redemptions, -1 for unlimited.
func (d *Discount) RemainingUses() int {
	if d.UsageLimit <= 0 {
		return -1
	}
	if left := d.UsageLimit - d.CurrentUsage; left > 0 {
		return left
	}
	return 0
}

// IsApplicable reports whether the discount can reduce an order of the
// given total at the given instant.
func (d *Discount) IsApplicable(orderTotal float64, now time.Time) bool {
	return d.IsValid(now) && orderTotal >= d.MinOrderAmount
}

// DiscountAmount computes the savings for an order total. A percentage
// discount is capped at MaxDiscountAmount when the cap is positive; a
// fixed discount never exceeds the order total. Returns zero when the
// discount is not applicable.
func (d *Discount) DiscountAmount(orderTotal float64, now time.Time) float64 {
	if !d.IsApplicable(orderTotal, now) {
		return 0
	}
	switch d.Type {
	case DiscountTypePercentage:
		amount := orderTotal * d.Value / 100
		if d.MaxDiscountAmount > 0 && amount > d.MaxDiscountAmount {
			amount = d.MaxDiscountAmount
		}
		return amount
	case DiscountTypeFixedAmount:
		if d.Value > orderTotal {
			return orderTotal
		}
		return d.Value
	}
	return 0
}

// Apply returns the final price after the discount.
func (d *Discount) Apply(orderTotal float64, now time.Time) float64 {
	return orderTotal - d.DiscountAmount(orderTotal, now)
}
