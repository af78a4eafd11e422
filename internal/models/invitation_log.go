package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation delivery status.
const (
	InvitationStatusPending = "pending"
	InvitationStatusSent    = "sent"
	InvitationStatusFailed  = "failed"
)

// InvitationLog records outbound invitation emails and their delivery outcome.
// One row per recipient; the email worker moves rows pending -> sent/failed.
type InvitationLog struct {
	ID             uuid.UUID  `json:"id"`
	ScopeType      string     `json:"scope_type"`
	ScopeID        uuid.UUID  `json:"scope_id"`
	RecipientEmail string     `json:"recipient_email"`
	Role           ScopeRole  `json:"role"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
