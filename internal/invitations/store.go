package invitations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhive/backend/internal/models"
)

// userSelectColumns feeds every users scan in this package. Nullable columns
// are coalesced so hand-seeded rows with NULL profile fields scan cleanly.
const userSelectColumns = `id, email, COALESCE(first_name,''), COALESCE(last_name,''), COALESCE(image_url,''), role, created_at, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// code serves pooled reads and the transactional write phase.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SQLStores is the PostgreSQL implementation of the Stores contract.
type SQLStores struct {
	pool *pgxpool.Pool
}

// NewSQLStores creates the pgx-backed membership store.
func NewSQLStores(pool *pgxpool.Pool) *SQLStores {
	return &SQLStores{pool: pool}
}

func (s *SQLStores) FindUsersByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	return findUsersByEmails(ctx, s.pool, emails)
}

func (s *SQLStores) FindMembershipsByScope(ctx context.Context, scope Scope, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	return findMembershipsByScope(ctx, s.pool, scope, userIDs)
}

func (s *SQLStores) CreateMemberships(ctx context.Context, scope Scope, userIDs []uuid.UUID, role models.ScopeRole) ([]uuid.UUID, error) {
	return createMemberships(ctx, s.pool, scope, userIDs, role)
}

// ScopeName resolves an organization name or event title, mapping a missing
// row to ErrScopeNotFound.
func (s *SQLStores) ScopeName(ctx context.Context, scope Scope) (string, error) {
	var q string
	switch scope.Type {
	case ScopeOrganization:
		q = `SELECT name FROM organizations WHERE id = $1`
	case ScopeEvent:
		q = `SELECT title FROM events WHERE id = $1`
	default:
		return "", ErrInvalidScopeType
	}
	var name string
	if err := s.pool.QueryRow(ctx, q, scope.ID).Scan(&name); err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrScopeNotFound
		}
		return "", err
	}
	return name, nil
}

// WithTx runs fn against a transactional store; commit only on nil error.
func (s *SQLStores) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// txStore is the Store bound to one open transaction.
type txStore struct {
	tx pgx.Tx
}

func (t *txStore) FindUsersByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	return findUsersByEmails(ctx, t.tx, emails)
}

func (t *txStore) FindMembershipsByScope(ctx context.Context, scope Scope, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	return findMembershipsByScope(ctx, t.tx, scope, userIDs)
}

func (t *txStore) CreateMemberships(ctx context.Context, scope Scope, userIDs []uuid.UUID, role models.ScopeRole) ([]uuid.UUID, error) {
	return createMemberships(ctx, t.tx, scope, userIDs, role)
}

func findUsersByEmails(ctx context.Context, q querier, emails []string) ([]models.User, error) {
	const query = `SELECT ` + userSelectColumns + `
		FROM users WHERE lower(email) = ANY($1)`
	rows, err := q.Query(ctx, query, emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ImageURL, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func findMembershipsByScope(ctx context.Context, q querier, scope Scope, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var query string
	switch scope.Type {
	case ScopeOrganization:
		query = `SELECT user_id FROM organization_memberships WHERE organization_id = $1 AND user_id = ANY($2)`
	case ScopeEvent:
		query = `SELECT user_id FROM event_participants WHERE event_id = $1 AND user_id = ANY($2)`
	default:
		return nil, ErrInvalidScopeType
	}
	rows, err := q.Query(ctx, query, scope.ID, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// createMemberships inserts one row per user. ON CONFLICT DO NOTHING makes a
// lost duplicate-insert race a skipped row instead of an aborted transaction;
// RETURNING reports which rows actually landed. Existing rows are never
// updated, so a concurrent reconciliation can not change a member's role.
func createMemberships(ctx context.Context, q querier, scope Scope, userIDs []uuid.UUID, role models.ScopeRole) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var query string
	switch scope.Type {
	case ScopeOrganization:
		query = `INSERT INTO organization_memberships (id, organization_id, user_id, role)
			SELECT gen_random_uuid(), $1, u, $2 FROM unnest($3::uuid[]) AS u
			ON CONFLICT (organization_id, user_id) DO NOTHING
			RETURNING user_id`
	case ScopeEvent:
		query = `INSERT INTO event_participants (id, event_id, user_id, role)
			SELECT gen_random_uuid(), $1, u, $2 FROM unnest($3::uuid[]) AS u
			ON CONFLICT (event_id, user_id) DO NOTHING
			RETURNING user_id`
	default:
		return nil, ErrInvalidScopeType
	}
	rows, err := q.Query(ctx, query, scope.ID, role, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var inserted []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		inserted = append(inserted, id)
	}
	return inserted, rows.Err()
}
