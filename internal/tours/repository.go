package tours

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horizon-travel/tourbook/internal/models"
)

const tourColumns = `id, name, COALESCE(image_url,''), location, scheduled_at, COALESCE(description,''),
	cost_per_person, capacity, current_bookings, duration_days, is_active, created_at, updated_at`

// Repository handles tour persistence. Capacity counters are only mutated
// inside booking transactions, never here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tours repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTour(row pgx.Row) (*models.Tour, error) {
	var t models.Tour
	err := row.Scan(&t.ID, &t.Name, &t.ImageURL, &t.Location, &t.ScheduledAt, &t.Description,
		&t.CostPerPerson, &t.Capacity, &t.CurrentBookings, &t.DurationDays, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) queryTours(ctx context.Context, q string, args ...any) ([]models.Tour, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Create inserts a new tour.
func (r *Repository) Create(ctx context.Context, t *models.Tour) error {
	const q = `INSERT INTO tours (name, image_url, location, scheduled_at, description, cost_per_person, capacity, duration_days, is_active)
		VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), $6, $7, $8, $9)
		RETURNING id, current_bookings, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.Name, t.ImageURL, t.Location, t.ScheduledAt, t.Description,
		t.CostPerPerson, t.Capacity, t.DurationDays, t.IsActive).
		Scan(&t.ID, &t.CurrentBookings, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a tour by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tour, error) {
	return scanTour(r.pool.QueryRow(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = $1`, id))
}

// List returns tours, active only unless includeInactive is set (admin view).
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]models.Tour, error) {
	if includeInactive {
		return r.queryTours(ctx, `SELECT `+tourColumns+` FROM tours ORDER BY created_at DESC`)
	}
	return r.queryTours(ctx, `SELECT `+tourColumns+` FROM tours WHERE is_active ORDER BY scheduled_at ASC`)
}

// SearchFilter narrows the active-tour listing.
type SearchFilter struct {
	Name          string
	Location      string
	MinPrice      *float64
	MaxPrice      *float64
	AvailableOnly bool
}

// Search returns active tours matching the filter, soonest first.
func (r *Repository) Search(ctx context.Context, f SearchFilter) ([]models.Tour, error) {
	q := `SELECT ` + tourColumns + ` FROM tours WHERE is_active`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Name != "" {
		q += ` AND name ILIKE '%' || ` + arg(f.Name) + ` || '%'`
	}
	if f.Location != "" {
		q += ` AND location ILIKE '%' || ` + arg(f.Location) + ` || '%'`
	}
	if f.MinPrice != nil {
		q += ` AND cost_per_person >= ` + arg(*f.MinPrice)
	}
	if f.MaxPrice != nil {
		q += ` AND cost_per_person <= ` + arg(*f.MaxPrice)
	}
	if f.AvailableOnly {
		q += ` AND current_bookings < capacity`
	}
	q += ` ORDER BY scheduled_at ASC`
	return r.queryTours(ctx, q, args...)
}

// Upcoming returns active tours scheduled after now, soonest first.
func (r *Repository) Upcoming(ctx context.Context) ([]models.Tour, error) {
	return r.queryTours(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE is_active AND scheduled_at > NOW() ORDER BY scheduled_at ASC`)
}

// Popular returns active tours by consumed capacity, busiest first.
func (r *Repository) Popular(ctx context.Context, limit int) ([]models.Tour, error) {
	return r.queryTours(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE is_active ORDER BY current_bookings DESC LIMIT $1`, limit)
}

// Update updates mutable tour fields. Capacity may only grow past the
// currently consumed seats.
func (r *Repository) Update(ctx context.Context, t *models.Tour) error {
	const q = `UPDATE tours SET name = $1, image_url = NULLIF($2,''), location = $3, scheduled_at = $4,
		description = NULLIF($5,''), cost_per_person = $6, capacity = $7, duration_days = $8, is_active = $9,
		updated_at = NOW()
		WHERE id = $10 AND $7 >= current_bookings
		RETURNING current_bookings, updated_at`
	return r.pool.QueryRow(ctx, q, t.Name, t.ImageURL, t.Location, t.ScheduledAt, t.Description,
		t.CostPerPerson, t.Capacity, t.DurationDays, t.IsActive, t.ID).
		Scan(&t.CurrentBookings, &t.UpdatedAt)
}

// SetImageURL stores the uploaded image reference for a tour.
func (r *Repository) SetImageURL(ctx context.Context, id uuid.UUID, imageURL string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tours SET image_url = $1, updated_at = NOW() WHERE id = $2`, imageURL, id)
	return err
}

// Delete removes a tour by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	return err
}
