package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScopeRole is the role a user carries inside a single organization or event.
// It is a closed enum validated once at the reconciliation boundary.
type ScopeRole string

const (
	ScopeRoleMember ScopeRole = "MEMBER"
	ScopeRoleClient ScopeRole = "CLIENT"
)

// ErrInvalidScopeRole is returned when a role string is outside the enum.
var ErrInvalidScopeRole = errors.New("role must be MEMBER or CLIENT")

// ParseScopeRole validates and normalizes a role string.
func ParseScopeRole(s string) (ScopeRole, error) {
	switch ScopeRole(strings.ToUpper(strings.TrimSpace(s))) {
	case ScopeRoleMember:
		return ScopeRoleMember, nil
	case ScopeRoleClient:
		return ScopeRoleClient, nil
	default:
		return "", ErrInvalidScopeRole
	}
}

// OrganizationMembership links a user to an organization.
// Unique per (organization_id, user_id).
type OrganizationMembership struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           ScopeRole `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventParticipant links a user to an event with an event-scoped role.
// Unique per (event_id, user_id); independent of org membership.
type EventParticipant struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      ScopeRole `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
