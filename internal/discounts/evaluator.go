package discounts

import (
	"bytes"
	"time"

	"github.com/horizon-travel/tourbook/internal/models"
)

// Quote is the outcome of evaluating the best discount for an order.
// Discount is nil when nothing applies; the order is then charged in full.
type Quote struct {
	Discount       *models.Discount `json:"discount,omitempty"`
	OriginalPrice  float64          `json:"original_price"`
	DiscountAmount float64          `json:"discount_amount"`
	FinalPrice     float64          `json:"final_price"`
}

// BestDiscount picks, among the candidates, the discount yielding the
// largest savings on the given order total. Candidates that are inactive,
// outside their validity window, over their usage limit, or whose minimum
// order amount exceeds the total contribute nothing and are skipped.
//
// Ties are broken deterministically: larger raw value wins, then the
// smaller ID. Evaluation has no side effects; usage is only consumed when
// a booking is confirmed.
func BestDiscount(candidates []models.Discount, orderTotal float64, now time.Time) Quote {
	quote := Quote{OriginalPrice: orderTotal, FinalPrice: orderTotal}
	for i := range candidates {
		d := &candidates[i]
		amount := d.DiscountAmount(orderTotal, now)
		if amount <= 0 {
			continue
		}
		if quote.Discount == nil || betterThan(d, amount, quote.Discount, quote.DiscountAmount) {
			quote.Discount = d
			quote.DiscountAmount = amount
		}
	}
	quote.FinalPrice = orderTotal - quote.DiscountAmount
	return quote
}

func betterThan(d *models.Discount, amount float64, best *models.Discount, bestAmount float64) bool {
	if amount != bestAmount {
		return amount > bestAmount
	}
	if d.Value != best.Value {
		return d.Value > best.Value
	}
	return bytes.Compare(d.ID[:], best.ID[:]) < 0
}
