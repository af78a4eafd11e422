package invitations

import (
	"context"

	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/queue"
)

// inviteQueue is the slice of pkg/queue the dispatcher needs.
type inviteQueue interface {
	EnqueueInviteEmail(ctx context.Context, payload queue.InviteEmailPayload) error
}

// inviteLogStore records one pending log row per recipient.
type inviteLogStore interface {
	Create(ctx context.Context, l *models.InvitationLog) error
}

// QueueDispatcher implements Dispatcher by enqueueing one email job per
// recipient onto the Redis-backed queue. Delivery itself happens in the
// worker; per-recipient failures here are logged with the failing email and
// never fail the batch.
type QueueDispatcher struct {
	queue  inviteQueue
	logs   inviteLogStore
	logger *zap.Logger
}

// NewQueueDispatcher creates the queue-backed invitation dispatcher.
func NewQueueDispatcher(q inviteQueue, logs inviteLogStore, logger *zap.Logger) *QueueDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueDispatcher{queue: q, logs: logs, logger: logger}
}

// SendInvites records a pending invitation log per recipient and enqueues the
// email jobs. Best effort throughout.
func (d *QueueDispatcher) SendInvites(ctx context.Context, emails []string, scope Scope, scopeName string, role models.ScopeRole) error {
	for _, email := range emails {
		l := &models.InvitationLog{
			ScopeType:      string(scope.Type),
			ScopeID:        scope.ID,
			RecipientEmail: email,
			Role:           role,
		}
		if err := d.logs.Create(ctx, l); err != nil {
			d.logger.Error("invitation log write failed", zap.String("email", email), zap.Error(err))
		}
		payload := queue.InviteEmailPayload{
			LogID:     l.ID,
			Email:     email,
			ScopeType: string(scope.Type),
			ScopeID:   scope.ID,
			ScopeName: scopeName,
			Role:      string(role),
		}
		if err := d.queue.EnqueueInviteEmail(ctx, payload); err != nil {
			d.logger.Error("invite enqueue failed", zap.String("email", email), zap.Error(err))
		}
	}
	return nil
}
