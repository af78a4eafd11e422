package models

import (
	"time"

	"github.com/google/uuid"
)

// Event belongs to exactly one organization and is operationally owned by a
// team admin within that org. PostID is a back-reference to the event's post,
// maintained by the post write path.
type Event struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	TeamAdminID    uuid.UUID  `json:"team_admin_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
	PostID         *uuid.UUID `json:"post_id,omitempty"`
	InstagramID    string     `json:"instagram_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// EventParticipantUser is a participant row joined with user details,
// for event listings.
type EventParticipantUser struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	ImageURL  string    `json:"image_url,omitempty"`
	Role      ScopeRole `json:"role"`
	AddedAt   time.Time `json:"added_at"`
}
