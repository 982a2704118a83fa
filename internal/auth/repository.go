package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horizon-travel/tourbook/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name,
	COALESCE(phone,''), COALESCE(address,''), role, must_change_password, password_reset_at,
	created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FullName,
		&u.Phone, &u.Address, &u.Role, &u.MustChangePassword, &u.PasswordResetAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername returns a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// List returns all users ordered by name, for admin user management.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// CreateUserParams holds the fields for inserting a user.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Address      string
	Role         models.Role
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (username, email, password_hash, full_name, phone, address, role)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q,
		p.Username, p.Email, p.PasswordHash, p.FullName, p.Phone, p.Address, string(p.Role)))
}

// UpdateProfile updates mutable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, email, phone, address string) (*models.User, error) {
	const q = `UPDATE users SET full_name = $1, email = $2, phone = NULLIF($3,''), address = NULLIF($4,''), updated_at = NOW()
		WHERE id = $5
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, fullName, email, phone, address, id))
}

// UpdateRole changes a user's role (admin user management).
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, string(role), id)
	return err
}

// UpdatePassword stores a new password hash, clearing the forced-change flag.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $1, must_change_password = FALSE, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, passwordHash, id)
	return err
}

// ResetPassword stores a temporary password hash and forces a change on next login.
func (r *Repository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string, resetAt time.Time) error {
	const q = `UPDATE users SET password_hash = $1, must_change_password = TRUE, password_reset_at = $2, updated_at = NOW()
		WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, passwordHash, resetAt, id)
	return err
}

// Delete removes a user by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
