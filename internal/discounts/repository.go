package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horizon-travel/tourbook/internal/models"
)

const discountColumns = `id, tour_id, name, COALESCE(description,''), discount_type, discount_value,
	max_discount_amount, min_order_amount, COALESCE(code,''), start_date, end_date,
	is_active, usage_limit, current_usage, created_at, updated_at`

// Repository handles discount persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a discounts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanDiscount(row pgx.Row) (*models.Discount, error) {
	var d models.Discount
	err := row.Scan(&d.ID, &d.TourID, &d.Name, &d.Description, &d.Type, &d.Value,
		&d.MaxDiscountAmount, &d.MinOrderAmount, &d.Code, &d.StartDate, &d.EndDate,
		&d.IsActive, &d.UsageLimit, &d.CurrentUsage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) queryDiscounts(ctx context.Context, q string, args ...any) ([]models.Discount, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

// CandidatesForTour returns active discounts scoped to the tour or global,
// whose validity window contains now. Usage-limit and minimum-order checks
// are left to the evaluator so a single query serves any order total.
func (r *Repository) CandidatesForTour(ctx context.Context, tourID uuid.UUID, now time.Time) ([]models.Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts
		WHERE (tour_id = $1 OR tour_id IS NULL)
		  AND is_active
		  AND start_date <= $2 AND end_date >= $2
		ORDER BY discount_value DESC`
	return r.queryDiscounts(ctx, q, tourID, now)
}

// GetByID returns a discount by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	return scanDiscount(r.pool.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id))
}

// GetByCode returns an active discount by its promotional code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Discount, error) {
	return scanDiscount(r.pool.QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE code = $1 AND is_active`, code))
}

// List returns all discounts, optionally filtered to one tour's (plus global) records.
func (r *Repository) List(ctx context.Context, tourID *uuid.UUID) ([]models.Discount, error) {
	if tourID != nil {
		return r.queryDiscounts(ctx,
			`SELECT `+discountColumns+` FROM discounts WHERE tour_id = $1 OR tour_id IS NULL ORDER BY created_at DESC`,
			*tourID)
	}
	return r.queryDiscounts(ctx, `SELECT `+discountColumns+` FROM discounts ORDER BY created_at DESC`)
}

// Create inserts a new discount.
func (r *Repository) Create(ctx context.Context, d *models.Discount) error {
	const q = `INSERT INTO discounts (tour_id, name, description, discount_type, discount_value,
			max_discount_amount, min_order_amount, code, start_date, end_date, is_active, usage_limit)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, $6, $7, NULLIF($8,''), $9, $10, $11, $12)
		RETURNING id, current_usage, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.TourID, d.Name, d.Description, d.Type, d.Value,
		d.MaxDiscountAmount, d.MinOrderAmount, d.Code, d.StartDate, d.EndDate, d.IsActive, d.UsageLimit).
		Scan(&d.ID, &d.CurrentUsage, &d.CreatedAt, &d.UpdatedAt)
}

// Update updates mutable discount fields.
func (r *Repository) Update(ctx context.Context, d *models.Discount) error {
	const q = `UPDATE discounts SET tour_id = $1, name = $2, description = NULLIF($3,''), discount_type = $4,
			discount_value = $5, max_discount_amount = $6, min_order_amount = $7, code = NULLIF($8,''),
			start_date = $9, end_date = $10, is_active = $11, usage_limit = $12, updated_at = NOW()
		WHERE id = $13
		RETURNING current_usage, updated_at`
	return r.pool.QueryRow(ctx, q, d.TourID, d.Name, d.Description, d.Type, d.Value,
		d.MaxDiscountAmount, d.MinOrderAmount, d.Code, d.StartDate, d.EndDate, d.IsActive, d.UsageLimit, d.ID).
		Scan(&d.CurrentUsage, &d.UpdatedAt)
}

// Delete removes a discount by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	return err
}

// DeactivateExpired disables discounts whose end date has passed.
// Returns the number of rows affected.
func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE discounts SET is_active = FALSE, updated_at = NOW() WHERE end_date < $1 AND is_active`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
