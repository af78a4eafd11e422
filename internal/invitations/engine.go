package invitations

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/models"
)

// ScopeType selects which membership table a reconciliation targets.
type ScopeType string

const (
	ScopeOrganization ScopeType = "ORGANIZATION"
	ScopeEvent        ScopeType = "EVENT"
)

// Scope is the unit against which membership is tracked: one organization or
// one event.
type Scope struct {
	Type ScopeType
	ID   uuid.UUID
}

// Result summarizes one reconciliation: how many of the requested emails were
// already members, how many memberships were created, and how many emails had
// no account and were routed to the invitation dispatcher.
type Result struct {
	AlreadyMember int         `json:"already_member"`
	NewlyAdded    int         `json:"newly_added"`
	Invited       int         `json:"invited"`
	AddedUserIDs  []uuid.UUID `json:"added_user_ids,omitempty"`
	InvitedEmails []string    `json:"invited_emails,omitempty"`
	Message       string      `json:"message"`
}

// Store is the membership store contract consumed by the engine. All methods
// must be safe to call against the transactional store handed to the WithTx
// callback.
type Store interface {
	// FindUsersByEmails returns users whose email matches any of the given
	// lowercased emails.
	FindUsersByEmails(ctx context.Context, emails []string) ([]models.User, error)
	// FindMembershipsByScope returns the subset of userIDs that already hold a
	// membership in the scope.
	FindMembershipsByScope(ctx context.Context, scope Scope, userIDs []uuid.UUID) ([]uuid.UUID, error)
	// CreateMemberships bulk-inserts membership rows and returns the user IDs
	// actually inserted. Rows losing a unique-constraint race are skipped, not
	// overwritten: the store never changes an existing membership's role.
	CreateMemberships(ctx context.Context, scope Scope, userIDs []uuid.UUID, role models.ScopeRole) ([]uuid.UUID, error)
}

// Stores extends Store with scope resolution and a transactional boundary.
type Stores interface {
	Store
	// ScopeName resolves the scope to its display name (org name or event
	// title), or ErrScopeNotFound.
	ScopeName(ctx context.Context, scope Scope) (string, error)
	// WithTx runs fn against a transactional Store. The transaction commits
	// only if fn returns nil; any error rolls back every write made inside fn.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Dispatcher sends email invitations to addresses with no account. Best
// effort: per-recipient failures must not fail the batch.
type Dispatcher interface {
	SendInvites(ctx context.Context, emails []string, scope Scope, scopeName string, role models.ScopeRole) error
}

// Notification is the payload handed to the relay for a newly added member.
type Notification struct {
	Message string
	Type    models.NotificationType
}

// Relay delivers a notification to one user: durable row plus best-effort live
// push.
type Relay interface {
	Notify(ctx context.Context, userID uuid.UUID, n Notification) error
}

// Engine reconciles a batch of invited emails against existing users and
// memberships, creating only the membership rows that are missing.
type Engine struct {
	stores     Stores
	dispatcher Dispatcher
	relay      Relay
	logger     *zap.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(stores Stores, dispatcher Dispatcher, relay Relay, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{stores: stores, dispatcher: dispatcher, relay: relay, logger: logger}
}

// Reconcile partitions the requested emails into {already-member, newly-added,
// no-account} for the scope, creates the missing membership rows in one
// transaction, and after commit notifies new members and dispatches email
// invitations for unmatched addresses.
//
// Pre-commit errors abort the whole call with no rows written. Post-commit
// dispatch and notify failures are logged and never surfaced: membership
// creation already succeeded and is not undone.
func (e *Engine) Reconcile(ctx context.Context, scope Scope, emails []string, role models.ScopeRole) (*Result, error) {
	if scope.Type != ScopeOrganization && scope.Type != ScopeEvent {
		return nil, ErrInvalidScopeType
	}
	if _, err := models.ParseScopeRole(string(role)); err != nil {
		return nil, err
	}
	deduped := dedupeEmails(emails)
	if len(deduped) == 0 {
		return nil, ErrNoEmails
	}

	scopeName, err := e.stores.ScopeName(ctx, scope)
	if err != nil {
		return nil, err
	}

	users, err := e.stores.FindUsersByEmails(ctx, deduped)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	userIDs := make([]uuid.UUID, 0, len(users))
	matched := make(map[string]struct{}, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
		matched[strings.ToLower(u.Email)] = struct{}{}
	}

	memberIDs, err := e.stores.FindMembershipsByScope(ctx, scope, userIDs)
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	isMember := make(map[uuid.UUID]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		isMember[id] = struct{}{}
	}

	var newMembers []uuid.UUID
	for _, u := range users {
		if _, ok := isMember[u.ID]; !ok {
			newMembers = append(newMembers, u.ID)
		}
	}

	var unmatched []string
	for _, email := range deduped {
		if _, ok := matched[email]; !ok {
			unmatched = append(unmatched, email)
		}
	}

	// Write phase: all-or-nothing. Rows that lose a concurrent-insert race are
	// reported back as not inserted and reclassified as already-member.
	var inserted []uuid.UUID
	if len(newMembers) > 0 {
		err := e.stores.WithTx(ctx, func(s Store) error {
			ids, err := s.CreateMemberships(ctx, scope, newMembers, role)
			if err != nil {
				return err
			}
			inserted = ids
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("create memberships: %w", err)
		}
	}

	res := &Result{
		AlreadyMember: len(users) - len(inserted),
		NewlyAdded:    len(inserted),
		Invited:       len(unmatched),
		AddedUserIDs:  inserted,
		InvitedEmails: unmatched,
	}
	res.Message = fmt.Sprintf("%d added, %d already a member, %d invited", res.NewlyAdded, res.AlreadyMember, res.Invited)

	// Post-commit side effects: best effort, logged only.
	notifType := models.NotificationTypeOrgMembership
	if scope.Type == ScopeEvent {
		notifType = models.NotificationTypeEventMembership
	}
	for _, userID := range inserted {
		n := Notification{
			Message: fmt.Sprintf("You have been added to %s", scopeName),
			Type:    notifType,
		}
		if err := e.relay.Notify(ctx, userID, n); err != nil {
			e.logger.Error("notify failed",
				zap.String("user_id", userID.String()),
				zap.String("scope_id", scope.ID.String()),
				zap.Error(err))
		}
	}
	if len(unmatched) > 0 {
		if err := e.dispatcher.SendInvites(ctx, unmatched, scope, scopeName, role); err != nil {
			e.logger.Error("invite dispatch failed",
				zap.Strings("emails", unmatched),
				zap.String("scope_id", scope.ID.String()),
				zap.Error(err))
		}
	}

	return res, nil
}

// dedupeEmails lowercases, trims, and deduplicates while preserving input
// order. Empty strings are dropped.
func dedupeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
