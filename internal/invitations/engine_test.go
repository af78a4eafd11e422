package invitations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/models"
)

// fakeStores is an in-memory Stores implementation for one scope. WithTx
// stages writes and discards them when the callback errors, mirroring the
// commit/rollback contract of the SQL store.
type fakeStores struct {
	users     []models.User
	members   map[uuid.UUID]struct{}
	scopeName string
	scopeErr  error

	findUsersErr  error
	findMemberErr error
	insertErr     error
	insertErrAt   int // fail once this many rows have been staged (0 = first)

	raceWinners map[uuid.UUID]struct{} // rows "already inserted" by a concurrent call
}

func newFakeStores(name string, users ...models.User) *fakeStores {
	return &fakeStores{
		users:     users,
		members:   make(map[uuid.UUID]struct{}),
		scopeName: name,
	}
}

func (f *fakeStores) FindUsersByEmails(_ context.Context, emails []string) ([]models.User, error) {
	if f.findUsersErr != nil {
		return nil, f.findUsersErr
	}
	want := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		want[e] = struct{}{}
	}
	var out []models.User
	for _, u := range f.users {
		if _, ok := want[strings.ToLower(u.Email)]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStores) FindMembershipsByScope(_ context.Context, _ Scope, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if f.findMemberErr != nil {
		return nil, f.findMemberErr
	}
	var out []uuid.UUID
	for _, id := range userIDs {
		if _, ok := f.members[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStores) CreateMemberships(_ context.Context, _ Scope, userIDs []uuid.UUID, _ models.ScopeRole) ([]uuid.UUID, error) {
	panic("CreateMemberships must run inside WithTx")
}

func (f *fakeStores) ScopeName(_ context.Context, _ Scope) (string, error) {
	if f.scopeErr != nil {
		return "", f.scopeErr
	}
	return f.scopeName, nil
}

func (f *fakeStores) WithTx(_ context.Context, fn func(Store) error) error {
	staged := &stagedStore{parent: f, writes: make(map[uuid.UUID]struct{})}
	if err := fn(staged); err != nil {
		return err // staged writes discarded
	}
	for id := range staged.writes {
		f.members[id] = struct{}{}
	}
	return nil
}

type stagedStore struct {
	parent *fakeStores
	writes map[uuid.UUID]struct{}
}

func (s *stagedStore) FindUsersByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	return s.parent.FindUsersByEmails(ctx, emails)
}

func (s *stagedStore) FindMembershipsByScope(ctx context.Context, scope Scope, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	return s.parent.FindMembershipsByScope(ctx, scope, userIDs)
}

func (s *stagedStore) CreateMemberships(_ context.Context, _ Scope, userIDs []uuid.UUID, _ models.ScopeRole) ([]uuid.UUID, error) {
	var inserted []uuid.UUID
	for i, id := range userIDs {
		if s.parent.insertErr != nil && i >= s.parent.insertErrAt {
			return nil, s.parent.insertErr
		}
		if _, won := s.parent.raceWinners[id]; won {
			continue // conflict: concurrent reconciliation got here first
		}
		if _, ok := s.parent.members[id]; ok {
			continue
		}
		s.writes[id] = struct{}{}
		inserted = append(inserted, id)
	}
	return inserted, nil
}

type fakeDispatcher struct {
	calls [][]string
	roles []models.ScopeRole
	err   error
}

func (d *fakeDispatcher) SendInvites(_ context.Context, emails []string, _ Scope, _ string, role models.ScopeRole) error {
	d.calls = append(d.calls, emails)
	d.roles = append(d.roles, role)
	return d.err
}

type fakeRelay struct {
	notified []uuid.UUID
	payloads []Notification
	err      error
}

func (r *fakeRelay) Notify(_ context.Context, userID uuid.UUID, n Notification) error {
	r.notified = append(r.notified, userID)
	r.payloads = append(r.payloads, n)
	return r.err
}

func testUser(email string) models.User {
	return models.User{ID: uuid.New(), Email: email, Role: models.RoleMember}
}

func orgScope() Scope {
	return Scope{Type: ScopeOrganization, ID: uuid.New()}
}

func newTestEngine(stores Stores) (*Engine, *fakeDispatcher, *fakeRelay) {
	d := &fakeDispatcher{}
	r := &fakeRelay{}
	return NewEngine(stores, d, r, zap.NewNop()), d, r
}

func TestReconcileAddsExistingUsers(t *testing.T) {
	a := testUser("a@x.com")
	b := testUser("b@x.com")
	stores := newFakeStores("Acme", a, b)
	engine, dispatcher, relay := newTestEngine(stores)

	res, err := engine.Reconcile(context.Background(), orgScope(), []string{"a@x.com", "b@x.com"}, models.ScopeRoleMember)
	require.NoError(t, err)

	assert.Equal(t, 0, res.AlreadyMember)
	assert.Equal(t, 2, res.NewlyAdded)
	assert.Equal(t, 0, res.Invited)
	assert.Len(t, stores.members, 2)
	assert.Len(t, relay.notified, 2)
	assert.Empty(t, dispatcher.calls)
	for _, p := range relay.payloads {
		assert.Equal(t, "You have been added to Acme", p.Message)
		assert.Equal(t, models.NotificationTypeOrgMembership, p.Type)
	}
}

func TestReconcileSkipsExistingMember(t *testing.T) {
	a := testUser("a@x.com")
	stores := newFakeStores("Acme", a)
	stores.members[a.ID] = struct{}{}
	engine, dispatcher, relay := newTestEngine(stores)

	res, err := engine.Reconcile(context.Background(), orgScope(), []string{"a@x.com"}, models.ScopeRoleMember)
	require.NoError(t, err)

	assert.Equal(t, 1, res.AlreadyMember)
	assert.Equal(t, 0, res.NewlyAdded)
	assert.Equal(t, 0, res.Invited)
	assert.Len(t, stores.members, 1)
	assert.Empty(t, relay.notified)
	assert.Empty(t, dispatcher.calls)
}

func TestReconcileInvitesUnknownEmail(t *testing.T) {
	stores := newFakeStores("Acme")
	engine, dispatcher, relay := newTestEngine(stores)

	res, err := engine.Reconcile(context.Background(), orgScope(), []string{"new@x.com"}, models.ScopeRoleClient)
	require.NoError(t, err)

	assert.Equal(t, 0, res.AlreadyMember)
	assert.Equal(t, 0, res.NewlyAdded)
	assert.Equal(t, 1, res.Invited)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, []string{"new@x.com"}, dispatcher.calls[0])
	assert.Equal(t, models.ScopeRoleClient, dispatcher.roles[0])
	assert.Empty(t, relay.notified)
}

func TestReconcileDeduplicatesEmails(t *testing.T) {
	a := testUser("a@x.com")
	stores := newFakeStores("Acme", a)
	engine, _, relay := newTestEngine(stores)

	res, err := engine.Reconcile(context.Background(), orgScope(), []string{"a@x.com", "A@X.com", " a@x.com "}, models.ScopeRoleMember)
	require.NoError(t, err)

	assert.Equal(t, 1, res.NewlyAdded)
	assert.Equal(t, 0, res.AlreadyMember)
	assert.Len(t, relay.notified, 1)
}

func TestReconcileIdempotent(t *testing.T) {
	a := testUser("a@x.com")
	b := testUser("b@x.com")
	stores := newFakeStores("Acme", a, b)
	engine, dispatcher, _ := newTestEngine(stores)
	emails := []string{"a@x.com", "b@x.com", "ghost@x.com"}

	first, err := engine.Reconcile(context.Background(), orgScope(), emails, models.ScopeRoleMember)
	require.NoError(t, err)
	require.Equal(t, 2, first.NewlyAdded)

	second, err := engine.Reconcile(context.Background(), orgScope(), emails, models.ScopeRoleMember)
	require.NoError(t, err)

	assert.Equal(t, 0, second.NewlyAdded)
	assert.Equal(t, first.NewlyAdded, second.AlreadyMember)
	assert.Equal(t, 1, second.Invited)
	assert.Len(t, stores.members, 2)
	// unmatched emails are re-invited every time, never silently dropped
	require.Len(t, dispatcher.calls, 2)
	assert.Equal(t, []string{"ghost@x.com"}, dispatcher.calls[1])
}

func TestReconcilePartitionCompleteness(t *testing.T) {
	a := testUser("a@x.com")
	stores := newFakeStores("Acme", a)
	engine, dispatcher, _ := newTestEngine(stores)

	res, err := engine.Reconcile(context.Background(), orgScope(),
		[]string{"a@x.com", "b@x.com", "c@x.com", "B@x.com"}, models.ScopeRoleMember)
	require.NoError(t, err)

	// dedup(E) has 3 entries: 1 matched, 2 unmatched, no overlap
	assert.Equal(t, 3, res.NewlyAdded+res.AlreadyMember+res.Invited)
	require.Len(t, dispatcher.calls, 1)
	assert.ElementsMatch(t, []string{"b@x.com", "c@x.com"}, dispatcher.calls[0])
	assert.NotContains(t, dispatcher.calls[0], "a@x.com")
}

func TestReconcileAtomicOnInsertFailure(t *testing.T) {
	a := testUser("a@x.com")
	b := testUser("b@x.com")
	c := testUser("c@x.com")
	stores := newFakeStores("Acme", a, b, c)
	stores.insertErr = errors.New("connection reset")
	stores.insertErrAt = 1 // first row staged, then the insert blows up
	engine, dispatcher, relay := newTestEngine(stores)

	_, err := engine.Reconcile(context.Background(), orgScope(), []string{"a@x.com", "b@x.com", "c@x.com"}, models.ScopeRoleMember)
	require.Error(t, err)

	assert.Empty(t, stores.members, "no membership rows may survive a failed transaction")
	assert.Empty(t, relay.notified)
	assert.Empty(t, dispatcher.calls)
}

func TestReconcileConflictRaceIsAlreadyMember(t *testing.T) {
	a := testUser("a@x.com")
	b := testUser("b@x.com")
	stores := newFakeStores("Acme", a, b)
	// b was inserted by a concurrent reconciliation between our read and write
	stores.raceWinners = map[uuid.UUID]struct{}{b.ID: {}}
	engine, _, relay := newTestEngine(stores)

	res, err := engine.Reconcile(context.Background(), orgScope(), []string{"a@x.com", "b@x.com"}, models.ScopeRoleMember)
	require.NoError(t, err)

	assert.Equal(t, 1, res.NewlyAdded)
	assert.Equal(t, 1, res.AlreadyMember)
	assert.Equal(t, []uuid.UUID{a.ID}, res.AddedUserIDs)
	assert.Equal(t, []uuid.UUID{a.ID}, relay.notified, "the race loser must not be re-notified")
}

func TestReconcileValidation(t *testing.T) {
	stores := newFakeStores("Acme")
	engine, _, _ := newTestEngine(stores)
	ctx := context.Background()

	_, err := engine.Reconcile(ctx, orgScope(), []string{"a@x.com"}, models.ScopeRole("OWNER"))
	assert.ErrorIs(t, err, models.ErrInvalidScopeRole)

	_, err = engine.Reconcile(ctx, orgScope(), nil, models.ScopeRoleMember)
	assert.ErrorIs(t, err, ErrNoEmails)

	_, err = engine.Reconcile(ctx, orgScope(), []string{"", "  "}, models.ScopeRoleMember)
	assert.ErrorIs(t, err, ErrNoEmails)

	_, err = engine.Reconcile(ctx, Scope{Type: "TEAM", ID: uuid.New()}, []string{"a@x.com"}, models.ScopeRoleMember)
	assert.ErrorIs(t, err, ErrInvalidScopeType)

	stores.scopeErr = ErrScopeNotFound
	_, err = engine.Reconcile(ctx, orgScope(), []string{"a@x.com"}, models.ScopeRoleMember)
	assert.ErrorIs(t, err, ErrScopeNotFound)
}

func TestReconcileSucceedsWhenSideEffectsFail(t *testing.T) {
	a := testUser("a@x.com")
	stores := newFakeStores("Acme", a)
	dispatcher := &fakeDispatcher{err: errors.New("smtp down")}
	relay := &fakeRelay{err: errors.New("socket gone")}
	engine := NewEngine(stores, dispatcher, relay, zap.NewNop())

	res, err := engine.Reconcile(context.Background(), orgScope(), []string{"a@x.com", "new@x.com"}, models.ScopeRoleMember)
	require.NoError(t, err, "post-commit failures must not surface")

	assert.Equal(t, 1, res.NewlyAdded)
	assert.Equal(t, 1, res.Invited)
	assert.Len(t, stores.members, 1, "commit stands regardless of side-effect outcome")
}

func TestReconcileEventScopeNotificationType(t *testing.T) {
	a := testUser("a@x.com")
	stores := newFakeStores("Launch Party", a)
	engine, _, relay := newTestEngine(stores)

	_, err := engine.Reconcile(context.Background(), Scope{Type: ScopeEvent, ID: uuid.New()}, []string{"a@x.com"}, models.ScopeRoleClient)
	require.NoError(t, err)

	require.Len(t, relay.payloads, 1)
	assert.Equal(t, models.NotificationTypeEventMembership, relay.payloads[0].Type)
	assert.Equal(t, "You have been added to Launch Party", relay.payloads[0].Message)
}

func TestDedupeEmails(t *testing.T) {
	got := dedupeEmails([]string{"A@x.com", "a@x.com", "", "b@x.com", " B@X.COM ", "  "})
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got)
}
