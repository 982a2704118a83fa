package emaillogs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horizon-travel/tourbook/internal/models"
)

const logColumns = `id, booking_id, user_id, email_type, recipient_email, COALESCE(subject,''),
	status, sent_at, COALESCE(error_message,''), created_at`

// Repository records every outbound notification email and its delivery outcome.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLog(row pgx.Row) (*models.EmailLog, error) {
	var l models.EmailLog
	err := row.Scan(&l.ID, &l.BookingID, &l.UserID, &l.EmailType, &l.RecipientEmail, &l.Subject,
		&l.Status, &l.SentAt, &l.ErrorMessage, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a pending log entry before a send is attempted.
func (r *Repository) Create(ctx context.Context, l *models.EmailLog) error {
	const q = `INSERT INTO email_logs (booking_id, user_id, email_type, recipient_email, subject, status)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6)
		RETURNING id, created_at`
	l.Status = models.EmailLogStatusPending
	return r.pool.QueryRow(ctx, q, l.BookingID, l.UserID, l.EmailType, l.RecipientEmail, l.Subject, l.Status).
		Scan(&l.ID, &l.CreatedAt)
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE email_logs SET status = $1, sent_at = $2, error_message = NULL WHERE id = $3`,
		models.EmailLogStatusSent, at, id)
	return err
}

// MarkFailed records a delivery failure with its error.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE email_logs SET status = $1, error_message = $2 WHERE id = $3`,
		models.EmailLogStatusFailed, errMsg, id)
	return err
}

// GetByID returns one log entry.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailLog, error) {
	return scanLog(r.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM email_logs WHERE id = $1`, id))
}

// List returns log entries, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string, limit int) ([]models.EmailLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + logColumns + ` FROM email_logs`
	args := []any{limit}
	if status != "" {
		q += ` WHERE status = $2`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EmailLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *l)
	}
	return list, rows.Err()
}
