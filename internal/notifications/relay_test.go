package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/models"
)

type fakeStore struct {
	rows []*models.Notification
	err  error
}

func (s *fakeStore) Create(_ context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	n.ID = uuid.New()
	s.rows = append(s.rows, n)
	return nil
}

type fakeLive struct {
	emits []uuid.UUID
}

func (l *fakeLive) EmitToUser(userID uuid.UUID, _ string, _ interface{}) {
	l.emits = append(l.emits, userID)
}

func TestNotifyAppendsAndEmits(t *testing.T) {
	store := &fakeStore{}
	live := &fakeLive{}
	relay := NewRelay(store, live, zap.NewNop())
	userID := uuid.New()

	err := relay.Notify(context.Background(), userID, invitations.Notification{
		Message: "You have been added to Acme",
		Type:    models.NotificationTypeOrgMembership,
	})
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	assert.Equal(t, userID, store.rows[0].UserID)
	assert.Equal(t, "You have been added to Acme", store.rows[0].Message)
	assert.Equal(t, []uuid.UUID{userID}, live.emits)
}

func TestNotifyDurableWriteFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	live := &fakeLive{}
	relay := NewRelay(store, live, zap.NewNop())

	err := relay.Notify(context.Background(), uuid.New(), invitations.Notification{
		Message: "hello",
		Type:    models.NotificationTypePostUpdate,
	})
	require.Error(t, err)
	assert.Empty(t, live.emits, "no live push when the durable write failed")
}

func TestNotifyWithoutLiveTransport(t *testing.T) {
	store := &fakeStore{}
	relay := NewRelay(store, nil, zap.NewNop())

	err := relay.Notify(context.Background(), uuid.New(), invitations.Notification{
		Message: "hello",
		Type:    models.NotificationTypeEventMembership,
	})
	require.NoError(t, err)
	assert.Len(t, store.rows, 1)
}
