package invitations

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eventhive/backend/internal/models"
)

// AcceptParams is the profile data supplied by the invitee when accepting.
type AcceptParams struct {
	FirstName   string
	LastName    string
	InstagramID string
}

// AcceptInvite redeems an invitation: the user is looked up by email and
// created lazily if missing, then the scope membership is inserted. Everything
// runs in one transaction. A user who already holds the membership is a benign
// no-op (alreadyMember true), not an error.
func (s *SQLStores) AcceptInvite(ctx context.Context, claims *InviteClaims, p AcceptParams) (user *models.User, alreadyMember bool, err error) {
	scope := Scope{Type: claims.ScopeType, ID: claims.ScopeID}
	if _, err := s.ScopeName(ctx, scope); err != nil {
		return nil, false, err
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	err = s.WithTx(ctx, func(st Store) error {
		tx := st.(*txStore).tx
		u, err := findOrCreateUser(ctx, tx, email, p, claims.Role)
		if err != nil {
			return err
		}
		inserted, err := st.CreateMemberships(ctx, scope, []uuid.UUID{u.ID}, claims.Role)
		if err != nil {
			return err
		}
		alreadyMember = len(inserted) == 0
		if claims.ScopeType == ScopeEvent && p.InstagramID != "" {
			if _, err := tx.Exec(ctx, `UPDATE events SET instagram_id = $1, updated_at = NOW() WHERE id = $2`, p.InstagramID, claims.ScopeID); err != nil {
				return fmt.Errorf("update event instagram: %w", err)
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, alreadyMember, nil
}

func findOrCreateUser(ctx context.Context, tx pgx.Tx, email string, p AcceptParams, role models.ScopeRole) (*models.User, error) {
	const sel = `SELECT ` + userSelectColumns + `
		FROM users WHERE lower(email) = $1`
	var u models.User
	err := tx.QueryRow(ctx, sel, email).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ImageURL, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == nil {
		return &u, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}
	// Lazy creation: the invitee's global role mirrors the scope role of the
	// invite that brought them in.
	globalRole := models.RoleMember
	if role == models.ScopeRoleClient {
		globalRole = models.RoleClient
	}
	const ins = `INSERT INTO users (id, email, first_name, last_name, role)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING ` + userSelectColumns
	err = tx.QueryRow(ctx, ins, email, p.FirstName, p.LastName, globalRole).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ImageURL, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}
