package invitations

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/queue"
)

type fakeInviteQueue struct {
	payloads []queue.InviteEmailPayload
	err      error
}

func (q *fakeInviteQueue) EnqueueInviteEmail(_ context.Context, p queue.InviteEmailPayload) error {
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, p)
	return nil
}

type fakeLogStore struct {
	rows []*models.InvitationLog
	err  error
}

func (s *fakeLogStore) Create(_ context.Context, l *models.InvitationLog) error {
	if s.err != nil {
		return s.err
	}
	l.ID = uuid.New()
	s.rows = append(s.rows, l)
	return nil
}

func TestDispatcherEnqueuesPerRecipient(t *testing.T) {
	q := &fakeInviteQueue{}
	logs := &fakeLogStore{}
	d := NewQueueDispatcher(q, logs, zap.NewNop())
	scope := Scope{Type: ScopeOrganization, ID: uuid.New()}

	err := d.SendInvites(context.Background(), []string{"a@x.com", "b@x.com"}, scope, "Acme", models.ScopeRoleClient)
	require.NoError(t, err)

	require.Len(t, q.payloads, 2)
	require.Len(t, logs.rows, 2)
	for i, email := range []string{"a@x.com", "b@x.com"} {
		assert.Equal(t, email, q.payloads[i].Email)
		assert.Equal(t, string(ScopeOrganization), q.payloads[i].ScopeType)
		assert.Equal(t, scope.ID, q.payloads[i].ScopeID)
		assert.Equal(t, "Acme", q.payloads[i].ScopeName)
		assert.Equal(t, "CLIENT", q.payloads[i].Role)
		assert.Equal(t, logs.rows[i].ID, q.payloads[i].LogID)
		assert.Equal(t, email, logs.rows[i].RecipientEmail)
	}
}

func TestDispatcherBestEffort(t *testing.T) {
	q := &fakeInviteQueue{err: errors.New("redis down")}
	logs := &fakeLogStore{err: errors.New("db down")}
	d := NewQueueDispatcher(q, logs, zap.NewNop())

	err := d.SendInvites(context.Background(), []string{"a@x.com"}, Scope{Type: ScopeEvent, ID: uuid.New()}, "Launch", models.ScopeRoleMember)
	assert.NoError(t, err, "per-recipient failures must not fail the batch")
}
