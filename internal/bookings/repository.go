package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horizon-travel/tourbook/internal/models"
)

var (
	// ErrNoCapacity means the tour cannot seat the requested party.
	ErrNoCapacity = errors.New("tour has no available capacity")
	// ErrInvalidStatus means the booking is not in a state the operation accepts.
	ErrInvalidStatus = errors.New("booking status does not allow this operation")
	// ErrNotOwner means the booking belongs to a different user.
	ErrNotOwner = errors.New("booking belongs to another user")
	// ErrCancelWindowClosed means the self-cancellation window has elapsed.
	ErrCancelWindowClosed = errors.New("cancellation window has closed")
	// ErrDiscountExhausted means the attached discount ran out of uses
	// between booking and approval.
	ErrDiscountExhausted = errors.New("discount usage limit reached")
)

const bookingColumns = `b.id, b.user_id, b.tour_id, b.number_of_people, b.total_amount, b.discount_id,
	b.booking_status, b.payment_status, COALESCE(b.qr_code,''), b.booking_reference, b.booking_date,
	COALESCE(b.notes,''), b.updated_at`

// Detail is a booking joined with the tour and customer it belongs to,
// for list views.
type Detail struct {
	models.Booking
	TourName     string `json:"tour_name"`
	TourLocation string `json:"tour_location"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
}

// Repository handles booking persistence. Seat counters on tours are
// adjusted in the same transaction as the booking row they reserve, so
// capacity can never be oversold.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a bookings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.TourID, &b.NumberOfPeople, &b.TotalAmount, &b.DiscountID,
		&b.BookingStatus, &b.PaymentStatus, &b.QRCode, &b.BookingReference, &b.BookingDate,
		&b.Notes, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanDetail(rows pgx.Rows) (*Detail, error) {
	var d Detail
	err := rows.Scan(&d.ID, &d.UserID, &d.TourID, &d.NumberOfPeople, &d.TotalAmount, &d.DiscountID,
		&d.BookingStatus, &d.PaymentStatus, &d.QRCode, &d.BookingReference, &d.BookingDate,
		&d.Notes, &d.UpdatedAt, &d.TourName, &d.TourLocation, &d.Username, &d.FullName)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create reserves seats and inserts the booking in one transaction. The
// seat reservation is a conditional update, so two concurrent bookings can
// never push a tour past capacity. Reference collisions are retried with a
// fresh reference.
func (r *Repository) Create(ctx context.Context, b *models.Booking) error {
	for attempt := 0; attempt < 3; attempt++ {
		b.BookingReference = NewReference()
		err := r.create(ctx, b)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return err
	}
	return errors.New("could not allocate a unique booking reference")
}

func (r *Repository) create(ctx context.Context, b *models.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE tours SET current_bookings = current_bookings + $1, updated_at = now()
		WHERE id = $2 AND is_active AND current_bookings + $1 <= capacity`,
		b.NumberOfPeople, b.TourID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoCapacity
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (user_id, tour_id, number_of_people, total_amount, discount_id,
			booking_status, payment_status, qr_code, booking_reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8,''), $9, NULLIF($10,''))
		RETURNING id, booking_date, updated_at`,
		b.UserID, b.TourID, b.NumberOfPeople, b.TotalAmount, b.DiscountID,
		models.BookingStatusPending, models.PaymentStatusPending, b.QRCode, b.BookingReference, b.Notes).
		Scan(&b.ID, &b.BookingDate, &b.UpdatedAt)
	if err != nil {
		return err
	}
	b.BookingStatus = models.BookingStatusPending
	b.PaymentStatus = models.PaymentStatusPending

	return tx.Commit(ctx)
}

// GetByID returns a booking by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1`, id))
}

// GetByReference returns a booking by its reference string.
func (r *Repository) GetByReference(ctx context.Context, ref string) (*models.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.booking_reference = $1`, ref))
}

const detailQuery = `SELECT ` + bookingColumns + `, t.name, t.location, u.username, COALESCE(u.full_name,'')
	FROM bookings b
	JOIN tours t ON t.id = b.tour_id
	JOIN users u ON u.id = b.user_id`

func (r *Repository) queryDetails(ctx context.Context, q string, args ...any) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

// ListByUser returns a customer's bookings, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Detail, error) {
	return r.queryDetails(ctx, detailQuery+` WHERE b.user_id = $1 ORDER BY b.booking_date DESC`, userID)
}

// ListFilter narrows the admin booking list.
type ListFilter struct {
	Status string
	TourID *uuid.UUID
}

// List returns all bookings matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Detail, error) {
	q := detailQuery + ` WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		q += ` AND b.booking_status = ` + arg(f.Status)
	}
	if f.TourID != nil {
		q += ` AND b.tour_id = ` + arg(*f.TourID)
	}
	q += ` ORDER BY b.booking_date DESC`
	return r.queryDetails(ctx, q, args...)
}

// Approve confirms a pending booking and marks it paid. When the booking
// carries a discount, one use is consumed atomically; if the discount ran
// out in the meantime the approval fails with ErrDiscountExhausted and the
// booking stays pending.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if b.BookingStatus != models.BookingStatusPending {
		return nil, ErrInvalidStatus
	}

	if b.DiscountID != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE discounts SET current_usage = current_usage + 1, updated_at = now()
			WHERE id = $1 AND (usage_limit <= 0 OR current_usage < usage_limit)`,
			*b.DiscountID)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrDiscountExhausted
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE bookings SET booking_status = $1, payment_status = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at`,
		models.BookingStatusConfirmed, models.PaymentStatusPaid, id).Scan(&b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.BookingStatus = models.BookingStatusConfirmed
	b.PaymentStatus = models.PaymentStatusPaid

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Reject cancels a pending booking and releases its seats.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return r.cancel(ctx, id, nil, time.Time{})
}

// SelfCancel cancels the caller's own pending booking, enforcing ownership
// and the cancellation window.
func (r *Repository) SelfCancel(ctx context.Context, id, userID uuid.UUID, now time.Time) (*models.Booking, error) {
	return r.cancel(ctx, id, &userID, now)
}

// cancel moves a pending booking to CANCELLED and gives its seats back to
// the tour in the same transaction. When userID is set, ownership and the
// self-cancel window are enforced and the payment status is left untouched;
// admin rejection cancels the payment as well.
func (r *Repository) cancel(ctx context.Context, id uuid.UUID, userID *uuid.UUID, now time.Time) (*models.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if userID != nil {
		if b.UserID != *userID {
			return nil, ErrNotOwner
		}
		if b.BookingStatus != models.BookingStatusPending {
			return nil, ErrInvalidStatus
		}
		if !b.CanSelfCancel(now) {
			return nil, ErrCancelWindowClosed
		}
	} else if b.BookingStatus != models.BookingStatusPending {
		return nil, ErrInvalidStatus
	}

	if _, err := tx.Exec(ctx, `
		UPDATE tours SET current_bookings = current_bookings - $1, updated_at = now()
		WHERE id = $2`,
		b.NumberOfPeople, b.TourID); err != nil {
		return nil, err
	}

	paymentStatus := b.PaymentStatus
	if userID == nil {
		paymentStatus = models.PaymentStatusCancelled
	}
	err = tx.QueryRow(ctx, `
		UPDATE bookings SET booking_status = $1, payment_status = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at`,
		models.BookingStatusCancelled, paymentStatus, id).Scan(&b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.BookingStatus = models.BookingStatusCancelled
	b.PaymentStatus = paymentStatus

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}
