package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
)

const userColumns = `id, email, COALESCE(password_hash, ''), COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(image_url, ''), role, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row, u *models.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.ImageURL, &u.Role, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email, matched case-insensitively, or nil when
// no account exists.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email), &u)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. Email is stored lowercased.
func (r *Repository) Create(ctx context.Context, email, passwordHash, firstName, lastName string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (id, email, password_hash, first_name, last_name, role)
		VALUES (gen_random_uuid(), lower($1), NULLIF($2, ''), $3, $4, $5)
		RETURNING ` + userColumns
	var u models.User
	err := scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, firstName, lastName, string(role)), &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetPassword stores a password hash for a user, used when a lazily created
// invitee completes signup.
func (r *Repository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	return err
}

// EmailsByRole returns every user's email grouped by platform role.
func (r *Repository) EmailsByRole(ctx context.Context) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, email FROM users ORDER BY role, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grouped := make(map[string][]string)
	for rows.Next() {
		var role, email string
		if err := rows.Scan(&role, &email); err != nil {
			return nil, err
		}
		grouped[role] = append(grouped[role], email)
	}
	return grouped, rows.Err()
}
