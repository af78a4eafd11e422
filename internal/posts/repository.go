package posts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
)

const postColumns = `id, organization_id, event_id, title, COALESCE(subtitle, ''), description, COALESCE(additional, ''), hashtags, COALESCE(media_url, ''), post_type, is_published, confirm_by_client, created_at, updated_at`

// Repository handles post persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a posts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPost(row pgx.Row, p *models.Post) error {
	return row.Scan(&p.ID, &p.OrganizationID, &p.EventID, &p.Title, &p.Subtitle, &p.Description, &p.Additional, &p.Hashtags, &p.MediaURL, &p.PostType, &p.IsPublished, &p.ConfirmByClient, &p.CreatedAt, &p.UpdatedAt)
}

// Create inserts the post and sets the owning event's post_id back-reference
// in the same transaction. The back-reference is maintained only here, so the
// two writes must not be split.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `INSERT INTO posts (id, organization_id, event_id, title, subtitle, description, additional, hashtags, media_url, post_type)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, is_published, confirm_by_client, created_at, updated_at`
	err = tx.QueryRow(ctx, q, p.OrganizationID, p.EventID, p.Title, p.Subtitle, p.Description, p.Additional, p.Hashtags, p.MediaURL, p.PostType).
		Scan(&p.ID, &p.IsPublished, &p.ConfirmByClient, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE events SET post_id = $1, updated_at = NOW() WHERE id = $2`, p.ID, p.EventID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetByID returns a post by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByEvent returns a page of the event's posts, newest first, plus the
// total count for pagination.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]models.Post, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE event_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, eventID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Post
	for rows.Next() {
		var p models.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// SetPublished flips the admin-controlled publish flag. The client
// confirmation flag is untouched.
func (r *Repository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE posts SET is_published = $1, updated_at = NOW() WHERE id = $2`, published, id)
	return err
}

// SetConfirmByClient flips the client-controlled confirmation flag. The
// publish flag is untouched.
func (r *Repository) SetConfirmByClient(ctx context.Context, id uuid.UUID, confirmed bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE posts SET confirm_by_client = $1, updated_at = NOW() WHERE id = $2`, confirmed, id)
	return err
}
