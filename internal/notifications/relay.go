package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/models"
)

// LiveTransport pushes an event to a user's live connections. Implemented by
// the realtime hub; delivery is fire-and-forget with no confirmation.
type LiveTransport interface {
	EmitToUser(userID uuid.UUID, event string, payload interface{})
}

// notificationStore is the slice of Repository the relay needs.
type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Relay delivers notifications: the durable row is the source of truth, the
// live push is best effort. A user offline at notify-time sees the
// notification later through the read API.
type Relay struct {
	store  notificationStore
	live   LiveTransport
	logger *zap.Logger
}

// NewRelay creates a notification relay.
func NewRelay(store notificationStore, live LiveTransport, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{store: store, live: live, logger: logger}
}

// Notify appends the durable notification row and emits a live event. A
// failed durable write is logged loudly and returned; a failed or skipped
// live push is invisible.
func (r *Relay) Notify(ctx context.Context, userID uuid.UUID, n invitations.Notification) error {
	row := &models.Notification{
		UserID:           userID,
		Message:          n.Message,
		NotificationType: n.Type,
	}
	if err := r.store.Create(ctx, row); err != nil {
		r.logger.Error("notification row lost",
			zap.String("user_id", userID.String()),
			zap.String("type", string(n.Type)),
			zap.Error(err))
		return fmt.Errorf("append notification: %w", err)
	}
	if r.live != nil {
		r.live.EmitToUser(userID, "notification", row)
	}
	return nil
}
