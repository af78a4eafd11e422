package models

import (
	"time"

	"github.com/google/uuid"
)

// PostType distinguishes editorial content kinds.
const (
	PostTypeSocial = "SOCIAL"
)

// Post is the editorial content attached to an event. IsPublished is
// admin-controlled and ConfirmByClient is client-controlled; the two flags are
// orthogonal and must never be merged into one state machine.
type Post struct {
	ID              uuid.UUID `json:"id"`
	OrganizationID  uuid.UUID `json:"organization_id"`
	EventID         uuid.UUID `json:"event_id"`
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle,omitempty"`
	Description     string    `json:"description"`
	Additional      string    `json:"additional,omitempty"`
	Hashtags        string    `json:"hashtags"`
	MediaURL        string    `json:"media_url,omitempty"`
	PostType        string    `json:"post_type"`
	IsPublished     bool      `json:"is_published"`
	ConfirmByClient bool      `json:"confirm_by_client"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
