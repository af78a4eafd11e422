package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/pkg/mailer"
	"github.com/eventhive/backend/pkg/queue"
)

type fakeMailer struct {
	sent    []mailer.InviteData
	to      []string
	sendErr error
}

func (f *fakeMailer) SendInvite(to string, data mailer.InviteData) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.to = append(f.to, to)
	f.sent = append(f.sent, data)
	return nil
}

type fakeLogs struct {
	sentIDs   []uuid.UUID
	failedIDs []uuid.UUID
	failedMsg []string
}

func (f *fakeLogs) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeLogs) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	f.failedIDs = append(f.failedIDs, id)
	f.failedMsg = append(f.failedMsg, msg)
	return nil
}

func inviteJob(t *testing.T, payload queue.InviteEmailPayload) *queue.Job {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeInviteEmail, Payload: body}
}

func TestProcessSendsInviteAndMarksSent(t *testing.T) {
	m := &fakeMailer{}
	logs := &fakeLogs{}
	signer := invitations.NewTokenSigner("test-secret", time.Hour)
	p := NewInviteProcessor(m, logs, signer, nil, "https://app.example.com", nil)

	logID := uuid.New()
	scopeID := uuid.New()
	job := inviteJob(t, queue.InviteEmailPayload{
		LogID:     logID,
		Email:     "dana@example.com",
		ScopeType: string(invitations.ScopeOrganization),
		ScopeID:   scopeID,
		ScopeName: "Acme Events",
		Role:      "MEMBER",
	})

	require.NoError(t, p.Process(context.Background(), job))

	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"dana@example.com"}, m.to)
	assert.Equal(t, "Acme Events", m.sent[0].ScopeName)
	assert.True(t, strings.HasPrefix(m.sent[0].AcceptURL, "https://app.example.com/invite/accept?token="))
	assert.Equal(t, []uuid.UUID{logID}, logs.sentIDs)
	assert.Empty(t, logs.failedIDs)

	// The accept link token must round-trip back to the invitation parameters.
	token := strings.TrimPrefix(m.sent[0].AcceptURL, "https://app.example.com/invite/accept?token=")
	claims, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", claims.Email)
	assert.Equal(t, invitations.ScopeOrganization, claims.ScopeType)
	assert.Equal(t, scopeID, claims.ScopeID)
}

func TestProcessMarksFailedOnSendError(t *testing.T) {
	m := &fakeMailer{sendErr: errors.New("smtp down")}
	logs := &fakeLogs{}
	signer := invitations.NewTokenSigner("test-secret", time.Hour)
	p := NewInviteProcessor(m, logs, signer, nil, "https://app.example.com", nil)

	logID := uuid.New()
	job := inviteJob(t, queue.InviteEmailPayload{
		LogID:     logID,
		Email:     "dana@example.com",
		ScopeType: string(invitations.ScopeEvent),
		ScopeID:   uuid.New(),
		ScopeName: "Launch Party",
		Role:      "CLIENT",
	})

	err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, []uuid.UUID{logID}, logs.failedIDs)
	assert.Contains(t, logs.failedMsg[0], "smtp down")
	assert.Empty(t, logs.sentIDs)
}

func TestProcessSkipsStatusUpdatesWithoutLogRow(t *testing.T) {
	m := &fakeMailer{}
	logs := &fakeLogs{}
	signer := invitations.NewTokenSigner("test-secret", time.Hour)
	p := NewInviteProcessor(m, logs, signer, nil, "https://app.example.com", nil)

	// A zero LogID means the dispatcher could not create the log row; the
	// email is still delivered but no status row is touched.
	job := inviteJob(t, queue.InviteEmailPayload{
		Email:     "dana@example.com",
		ScopeType: string(invitations.ScopeOrganization),
		ScopeID:   uuid.New(),
		ScopeName: "Acme Events",
		Role:      "MEMBER",
	})

	require.NoError(t, p.Process(context.Background(), job))
	require.Len(t, m.sent, 1)
	assert.Empty(t, logs.sentIDs)
	assert.Empty(t, logs.failedIDs)

	m.sendErr = errors.New("smtp down")
	require.Error(t, p.Process(context.Background(), job))
	assert.Empty(t, logs.failedIDs)
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewInviteProcessor(&fakeMailer{}, &fakeLogs{}, invitations.NewTokenSigner("s", time.Hour), nil, "http://localhost", nil)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "bogus"})
	assert.Error(t, err)
}
