package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
)

// Repository handles event and event_participant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, organization_id, team_admin_id, title, description, start_time, end_time, instagram_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.OrganizationID, e.TeamAdminID, e.Title, e.Description, e.StartTime, e.EndTime, e.InstagramID).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, organization_id, team_admin_id, title, description, start_time, end_time, post_id, COALESCE(instagram_id, ''), created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.OrganizationID, &e.TeamAdminID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.PostID, &e.InstagramID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EventDetails is an event enriched with its team admin and participants,
// for the organization event listing.
type EventDetails struct {
	models.Event
	TeamAdmin    models.UserPublic             `json:"team_admin"`
	Participants []models.EventParticipantUser `json:"participants"`
}

// ListByOrg returns the organization's events with team admin details and
// participant lists, upcoming first.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*EventDetails, error) {
	const q = `SELECT e.id, e.organization_id, e.team_admin_id, e.title, e.description, e.start_time, e.end_time, e.post_id, COALESCE(e.instagram_id, ''), e.created_at, e.updated_at,
			u.id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.image_url, '')
		FROM events e
		INNER JOIN users u ON u.id = e.team_admin_id
		WHERE e.organization_id = $1
		ORDER BY e.start_time DESC`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*EventDetails
	byID := make(map[uuid.UUID]*EventDetails)
	for rows.Next() {
		var d EventDetails
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.TeamAdminID, &d.Title, &d.Description, &d.StartTime, &d.EndTime, &d.PostID, &d.InstagramID, &d.CreatedAt, &d.UpdatedAt,
			&d.TeamAdmin.ID, &d.TeamAdmin.Email, &d.TeamAdmin.FirstName, &d.TeamAdmin.LastName, &d.TeamAdmin.ImageURL); err != nil {
			return nil, err
		}
		d.Participants = []models.EventParticipantUser{}
		list = append(list, &d)
		byID[d.ID] = list[len(list)-1]
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]uuid.UUID, 0, len(list))
	for _, d := range list {
		ids = append(ids, d.ID)
	}
	const pq = `SELECT ep.event_id, ep.user_id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.image_url, ''), ep.role, ep.created_at
		FROM event_participants ep
		INNER JOIN users u ON u.id = ep.user_id
		WHERE ep.event_id = ANY($1::uuid[])
		ORDER BY ep.created_at ASC`
	prows, err := r.pool.Query(ctx, pq, ids)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var eventID uuid.UUID
		var p models.EventParticipantUser
		if err := prows.Scan(&eventID, &p.UserID, &p.Email, &p.FirstName, &p.LastName, &p.ImageURL, &p.Role, &p.AddedAt); err != nil {
			return nil, err
		}
		if d, ok := byID[eventID]; ok {
			d.Participants = append(d.Participants, p)
		}
	}
	return list, prows.Err()
}

// Update updates event fields. Nil pointers leave the column untouched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, instagramID *string, startTime, endTime *time.Time) error {
	const q = `UPDATE events SET
		title = COALESCE($1, title),
		description = COALESCE($2, description),
		instagram_id = COALESCE($3, instagram_id),
		start_time = COALESCE($4, start_time),
		end_time = COALESCE($5, end_time),
		updated_at = NOW()
		WHERE id = $6`
	_, err := r.pool.Exec(ctx, q, title, description, instagramID, startTime, endTime, id)
	return err
}

// Delete removes an event. Participants and posts cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// ListParticipants returns an event's participants with user details.
func (r *Repository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]models.EventParticipantUser, error) {
	const q = `SELECT ep.user_id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.image_url, ''), ep.role, ep.created_at
		FROM event_participants ep
		INNER JOIN users u ON u.id = ep.user_id
		WHERE ep.event_id = $1
		ORDER BY ep.created_at ASC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventParticipantUser
	for rows.Next() {
		var p models.EventParticipantUser
		if err := rows.Scan(&p.UserID, &p.Email, &p.FirstName, &p.LastName, &p.ImageURL, &p.Role, &p.AddedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ParticipantRole returns the user's role in the event, or ok=false when the
// user is not a participant.
func (r *Repository) ParticipantRole(ctx context.Context, eventID, userID uuid.UUID) (models.ScopeRole, bool, error) {
	var role models.ScopeRole
	err := r.pool.QueryRow(ctx, `SELECT role FROM event_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

// RemoveParticipant deletes a participant row. Reports whether a row existed.
func (r *Repository) RemoveParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
