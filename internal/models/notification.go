package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies what a notification is about.
type NotificationType string

const (
	NotificationTypeOrgMembership   NotificationType = "ORG_MEMBERSHIP"
	NotificationTypeEventMembership NotificationType = "EVENT_MEMBERSHIP"
	NotificationTypePostUpdate      NotificationType = "POST_UPDATE"
)

// Notification is an append-only per-user log row. Rows are written by the
// notification relay and never mutated.
type Notification struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	Message          string           `json:"message"`
	NotificationType NotificationType `json:"notification_type"`
	CreatedAt        time.Time        `json:"created_at"`
}
