package invitations

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhive/backend/internal/models"
)

func TestInviteTokenRoundTrip(t *testing.T) {
	signer := NewTokenSigner("test-secret", time.Hour)
	scope := Scope{Type: ScopeEvent, ID: uuid.New()}

	token, err := signer.Generate("invitee@x.com", scope, models.ScopeRoleClient)
	require.NoError(t, err)

	claims, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "invitee@x.com", claims.Email)
	assert.Equal(t, ScopeEvent, claims.ScopeType)
	assert.Equal(t, scope.ID, claims.ScopeID)
	assert.Equal(t, models.ScopeRoleClient, claims.Role)
}

func TestInviteTokenExpired(t *testing.T) {
	signer := NewTokenSigner("test-secret", -time.Minute)
	token, err := signer.Generate("invitee@x.com", Scope{Type: ScopeOrganization, ID: uuid.New()}, models.ScopeRoleMember)
	require.NoError(t, err)

	_, err = signer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidInviteToken)
}

func TestInviteTokenWrongSecret(t *testing.T) {
	signer := NewTokenSigner("test-secret", time.Hour)
	token, err := signer.Generate("invitee@x.com", Scope{Type: ScopeOrganization, ID: uuid.New()}, models.ScopeRoleMember)
	require.NoError(t, err)

	other := NewTokenSigner("other-secret", time.Hour)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidInviteToken)
}
