package invitations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
)

// LogRepository handles invitation_logs persistence.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository creates an invitation logs repository.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// Create inserts a pending invitation log row.
func (r *LogRepository) Create(ctx context.Context, l *models.InvitationLog) error {
	const q = `INSERT INTO invitation_logs (id, scope_type, scope_id, recipient_email, role, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, l.ScopeType, l.ScopeID, l.RecipientEmail, l.Role, models.InvitationStatusPending).
		Scan(&l.ID, &l.CreatedAt)
}

// MarkSent sets a log row to sent with the send timestamp.
func (r *LogRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE invitation_logs SET status = $1, sent_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, models.InvitationStatusSent, id)
	return err
}

// MarkFailed sets a log row to failed with the error message.
func (r *LogRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE invitation_logs SET status = $1, error_message = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, models.InvitationStatusFailed, errMsg, id)
	return err
}

// ListByScope returns invitation logs for a scope, newest first.
func (r *LogRepository) ListByScope(ctx context.Context, scopeType ScopeType, scopeID uuid.UUID) ([]*models.InvitationLog, error) {
	const q = `SELECT id, scope_type, scope_id, recipient_email, role, status, COALESCE(error_message,''), sent_at, created_at
		FROM invitation_logs
		WHERE scope_type = $1 AND scope_id = $2
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, scopeType, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.InvitationLog
	for rows.Next() {
		var l models.InvitationLog
		if err := rows.Scan(&l.ID, &l.ScopeType, &l.ScopeID, &l.RecipientEmail, &l.Role, &l.Status, &l.ErrorMessage, &l.SentAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
