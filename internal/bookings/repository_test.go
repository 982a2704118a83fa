package bookings

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/pkg/database"
)

// testPool connects to the database named by TEST_DATABASE_URL and runs
// migrations, or skips the test when no database is available.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database integration test")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	suffix := uuid.NewString()[:8]
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (username, email, password_hash, full_name)
		VALUES ($1, $2, 'x', 'Test Customer')
		RETURNING id`,
		"cust_"+suffix, fmt.Sprintf("cust_%s@example.com", suffix)).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func createTestTour(t *testing.T, pool *pgxpool.Pool, capacity int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO tours (name, location, scheduled_at, cost_per_person, capacity)
		VALUES ('Sapa Trek', 'Sapa', now() + interval '30 days', 120, $1)
		RETURNING id`, capacity).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM tours WHERE id = $1`, id)
	})
	return id
}

func createTestDiscount(t *testing.T, pool *pgxpool.Pool, tourID uuid.UUID, usageLimit int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO discounts (tour_id, name, discount_type, discount_value,
			start_date, end_date, usage_limit)
		VALUES ($1, 'Early Bird', 'PERCENTAGE', 10, now() - interval '1 day',
			now() + interval '30 days', $2)
		RETURNING id`, tourID, usageLimit).Scan(&id)
	require.NoError(t, err)
	return id
}

func seatsTaken(t *testing.T, pool *pgxpool.Pool, tourID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT current_bookings FROM tours WHERE id = $1`, tourID).Scan(&n))
	return n
}

func bookingRows(t *testing.T, pool *pgxpool.Pool, tourID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM bookings WHERE tour_id = $1`, tourID).Scan(&n))
	return n
}

func TestCreateReservesSeats(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	userID := createTestUser(t, pool)
	tourID := createTestTour(t, pool, 5)

	b := &models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 3, TotalAmount: 360}
	require.NoError(t, repo.Create(ctx, b))

	assert.Equal(t, 3, seatsTaken(t, pool, tourID))
	assert.Equal(t, models.BookingStatusPending, b.BookingStatus)
	assert.Equal(t, models.PaymentStatusPending, b.PaymentStatus)
	assert.True(t, ValidReference(b.BookingReference))
	assert.NotEqual(t, uuid.Nil, b.ID)
}

func TestCreateAtCapacityPersistsNothing(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	userID := createTestUser(t, pool)
	tourID := createTestTour(t, pool, 3)

	first := &models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 3, TotalAmount: 360}
	require.NoError(t, repo.Create(ctx, first))
	require.Equal(t, 3, seatsTaken(t, pool, tourID))

	over := &models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 1, TotalAmount: 120}
	err := repo.Create(ctx, over)
	require.ErrorIs(t, err, ErrNoCapacity)

	// The rejected booking must leave no trace: no row, no seat change.
	assert.Equal(t, 1, bookingRows(t, pool, tourID))
	assert.Equal(t, 3, seatsTaken(t, pool, tourID))
}

func TestCreatePartialCapacityRejectsOversizedParty(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	userID := createTestUser(t, pool)
	tourID := createTestTour(t, pool, 4)

	require.NoError(t, repo.Create(ctx,
		&models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 3, TotalAmount: 360}))

	// One seat left; a party of two must not squeeze in.
	err := repo.Create(ctx,
		&models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 2, TotalAmount: 240})
	require.ErrorIs(t, err, ErrNoCapacity)

	// The last single seat is still bookable.
	require.NoError(t, repo.Create(ctx,
		&models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 1, TotalAmount: 120}))
	assert.Equal(t, 4, seatsTaken(t, pool, tourID))
}

func TestSelfCancelReleasesSeats(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	userID := createTestUser(t, pool)
	tourID := createTestTour(t, pool, 5)

	b := &models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 2, TotalAmount: 240}
	require.NoError(t, repo.Create(ctx, b))
	require.Equal(t, 2, seatsTaken(t, pool, tourID))

	cancelled, err := repo.SelfCancel(ctx, b.ID, userID, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, seatsTaken(t, pool, tourID))
	assert.Equal(t, models.BookingStatusCancelled, cancelled.BookingStatus)
	// Customer cancellation does not touch the payment status.
	assert.Equal(t, models.PaymentStatusPending, cancelled.PaymentStatus)
}

func TestRejectReleasesSeatsAndCancelsPayment(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	userID := createTestUser(t, pool)
	tourID := createTestTour(t, pool, 5)

	b := &models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 4, TotalAmount: 480}
	require.NoError(t, repo.Create(ctx, b))

	rejected, err := repo.Reject(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, seatsTaken(t, pool, tourID))
	assert.Equal(t, models.BookingStatusCancelled, rejected.BookingStatus)
	assert.Equal(t, models.PaymentStatusCancelled, rejected.PaymentStatus)
}

func TestSelfCancelRejectsOtherUsersBooking(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	ownerID := createTestUser(t, pool)
	otherID := createTestUser(t, pool)
	tourID := createTestTour(t, pool, 5)

	b := &models.Booking{UserID: ownerID, TourID: tourID, NumberOfPeople: 1, TotalAmount: 120}
	require.NoError(t, repo.Create(ctx, b))

	_, err := repo.SelfCancel(ctx, b.ID, otherID, time.Now())
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, 1, seatsTaken(t, pool, tourID))
}

func TestApproveConsumesDiscountUse(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	userID := createTestUser(t, pool)
	tourID := createTestTour(t, pool, 10)
	discountID := createTestDiscount(t, pool, tourID, 1)

	first := &models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 1,
		TotalAmount: 108, DiscountID: &discountID}
	require.NoError(t, repo.Create(ctx, first))
	second := &models.Booking{UserID: userID, TourID: tourID, NumberOfPeople: 1,
		TotalAmount: 108, DiscountID: &discountID}
	require.NoError(t, repo.Create(ctx, second))

	approved, err := repo.Approve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, approved.BookingStatus)
	assert.Equal(t, models.PaymentStatusPaid, approved.PaymentStatus)

	// The single use is spent; the second approval fails and the booking
	// stays pending.
	_, err = repo.Approve(ctx, second.ID)
	require.ErrorIs(t, err, ErrDiscountExhausted)

	stillPending, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, stillPending.BookingStatus)

	var usage int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT current_usage FROM discounts WHERE id = $1`, discountID).Scan(&usage))
	assert.Equal(t, 1, usage)
}
