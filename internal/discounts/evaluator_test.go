package discounts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/horizon-travel/tourbook/internal/models"
)

func validWindow(now time.Time) (time.Time, time.Time) {
	return now.Add(-24 * time.Hour), now.Add(24 * time.Hour)
}

func percentage(now time.Time, value, cap float64) models.Discount {
	start, end := validWindow(now)
	return models.Discount{
		ID:                uuid.New(),
		Name:              "pct",
		Type:              models.DiscountTypePercentage,
		Value:             value,
		MaxDiscountAmount: cap,
		StartDate:         start,
		EndDate:           end,
		IsActive:          true,
	}
}

func fixed(now time.Time, value float64) models.Discount {
	start, end := validWindow(now)
	return models.Discount{
		ID:        uuid.New(),
		Name:      "fixed",
		Type:      models.DiscountTypeFixedAmount,
		Value:     value,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
	}
}

func TestPercentageCappedAtMaxAmount(t *testing.T) {
	now := time.Now()
	d := percentage(now, 20, 100)

	amount := d.DiscountAmount(1000, now)
	assert.Equal(t, 100.0, amount, "20%% of 1000 capped at 100")

	// No cap when MaxDiscountAmount is zero.
	d.MaxDiscountAmount = 0
	assert.Equal(t, 200.0, d.DiscountAmount(1000, now))
}

func TestFixedAmountNeverExceedsTotal(t *testing.T) {
	now := time.Now()
	d := fixed(now, 50)

	assert.Equal(t, 30.0, d.DiscountAmount(30, now))
	assert.Equal(t, 0.0, d.Apply(30, now), "final price clamps at zero")
	assert.Equal(t, 50.0, d.DiscountAmount(200, now))
}

func TestExpiredDiscountNeverSelected(t *testing.T) {
	now := time.Now()
	expired := percentage(now, 50, 0)
	expired.StartDate = now.Add(-48 * time.Hour)
	expired.EndDate = now.Add(-24 * time.Hour)

	q := BestDiscount([]models.Discount{expired}, 500, now)
	assert.Nil(t, q.Discount)
	assert.Equal(t, 0.0, q.DiscountAmount)
	assert.Equal(t, 500.0, q.FinalPrice)
}

func TestInactiveAndExhaustedSkipped(t *testing.T) {
	now := time.Now()

	inactive := fixed(now, 40)
	inactive.IsActive = false

	exhausted := fixed(now, 40)
	exhausted.UsageLimit = 5
	exhausted.CurrentUsage = 5

	small := fixed(now, 10)

	q := BestDiscount([]models.Discount{inactive, exhausted, small}, 500, now)
	if assert.NotNil(t, q.Discount) {
		assert.Equal(t, small.ID, q.Discount.ID)
	}
	assert.Equal(t, 10.0, q.DiscountAmount)
}

func TestMinOrderAmountGate(t *testing.T) {
	now := time.Now()
	d := fixed(now, 25)
	d.MinOrderAmount = 200

	assert.Equal(t, 0.0, d.DiscountAmount(199.99, now))
	assert.Equal(t, 25.0, d.DiscountAmount(200, now))
}

func TestBestDiscountPicksLargestSavings(t *testing.T) {
	now := time.Now()
	tenPct := percentage(now, 10, 0) // 15 on a 150 order
	twenty := fixed(now, 20)

	q := BestDiscount([]models.Discount{tenPct, twenty}, 150, now)
	if assert.NotNil(t, q.Discount) {
		assert.Equal(t, twenty.ID, q.Discount.ID, "$20 off beats 10%% of $150")
	}
	assert.Equal(t, 20.0, q.DiscountAmount)
	assert.Equal(t, 130.0, q.FinalPrice)

	// Flip the order total so the percentage wins.
	q = BestDiscount([]models.Discount{tenPct, twenty}, 500, now)
	if assert.NotNil(t, q.Discount) {
		assert.Equal(t, tenPct.ID, q.Discount.ID)
	}
	assert.Equal(t, 50.0, q.DiscountAmount)
}

func TestTieBreakRawValueThenID(t *testing.T) {
	now := time.Now()

	// A capped 50% and a fixed 100 both save 100 on a 1000 order.
	capped := percentage(now, 50, 100)
	flat := fixed(now, 100)

	q := BestDiscount([]models.Discount{flat, capped}, 1000, now)
	if assert.NotNil(t, q.Discount) {
		assert.Equal(t, 100.0, q.DiscountAmount)
		assert.Equal(t, flat.ID, q.Discount.ID, "value 100 beats value 50 on equal savings")
	}

	// Identical savings and value: smaller ID wins regardless of order.
	a := fixed(now, 100)
	b := fixed(now, 100)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

	q = BestDiscount([]models.Discount{b, a}, 1000, now)
	assert.Equal(t, a.ID, q.Discount.ID)
	q = BestDiscount([]models.Discount{a, b}, 1000, now)
	assert.Equal(t, a.ID, q.Discount.ID)
}

func TestQuoteNeverNegative(t *testing.T) {
	now := time.Now()
	d := fixed(now, 10_000)

	q := BestDiscount([]models.Discount{d}, 75, now)
	assert.Equal(t, 75.0, q.DiscountAmount)
	assert.Equal(t, 0.0, q.FinalPrice)
	assert.GreaterOrEqual(t, q.FinalPrice, 0.0)
}

func TestNoCandidatesChargesFull(t *testing.T) {
	q := BestDiscount(nil, 300, time.Now())
	assert.Nil(t, q.Discount)
	assert.Equal(t, 300.0, q.OriginalPrice)
	assert.Equal(t, 300.0, q.FinalPrice)
}
