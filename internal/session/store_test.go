package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pointerRecorder struct {
	updated   []string
	refreshed []string
	cleared   []string
}

func (p *pointerRecorder) UpdateSessionPointer(ctx context.Context, userID, sessionID string, expiresAt, lastLoginAt time.Time) error {
	p.updated = append(p.updated, userID)
	return nil
}

func (p *pointerRecorder) RefreshSessionPointer(ctx context.Context, userID string, expiresAt time.Time) error {
	p.refreshed = append(p.refreshed, userID)
	return nil
}

func (p *pointerRecorder) ClearSessionPointer(ctx context.Context, userID string) error {
	p.cleared = append(p.cleared, userID)
	return nil
}

func newTestStore(t *testing.T) (*Store, *pointerRecorder, *time.Time) {
	t.Helper()
	users := &pointerRecorder{}
	store := NewStore(users, Config{Window: time.Hour, RememberWindow: 7 * 24 * time.Hour}, nil)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	return store, users, &current
}

func TestStoreCreateIssuesOpaqueToken(t *testing.T) {
	store, users, now := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Len(t, session.SessionID, 64, "32 random bytes hex encoded")
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)
	assert.Equal(t, []string{"u1"}, users.updated)
	assert.Equal(t, 1, store.ActiveCount())
}

func TestStoreCreateRememberMeWindow(t *testing.T) {
	store, _, now := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), session.ExpiresAt)
	assert.True(t, session.RememberMe)
}

func TestStoreCreateReplacesPriorSession(t *testing.T) {
	store, _, _ := newTestStore(t)

	first, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)
	second, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Nil(t, store.Lookup(first.SessionID), "prior session must be gone")
	assert.NotNil(t, store.Lookup(second.SessionID))
	assert.Equal(t, 1, store.ActiveCount(), "at most one session per user")
}

func TestStoreLookupLazyExpiry(t *testing.T) {
	store, _, now := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)

	*now = now.Add(time.Hour + time.Minute)

	assert.Nil(t, store.Lookup(session.SessionID))
	assert.Equal(t, 0, store.ActiveCount(), "expired entry removed on lookup")
}

func TestStoreLookupAtBoundary(t *testing.T) {
	store, _, now := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)

	// Exactly at the expiry instant the session is still valid.
	*now = session.ExpiresAt
	assert.NotNil(t, store.Lookup(session.SessionID))

	*now = session.ExpiresAt.Add(time.Nanosecond)
	assert.Nil(t, store.Lookup(session.SessionID))
}

func TestStoreRefreshSlidesWindow(t *testing.T) {
	store, users, now := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", true)
	require.NoError(t, err)

	*now = now.Add(3 * 24 * time.Hour)
	refreshed := store.Refresh(context.Background(), session.SessionID)
	require.NotNil(t, refreshed)

	assert.Equal(t, now.Add(7*24*time.Hour), refreshed.ExpiresAt, "remember-me window applies on refresh")
	assert.True(t, refreshed.RememberMe)
	assert.Equal(t, []string{"u1"}, users.refreshed)
}

func TestStoreRefreshExpiredReturnsNil(t *testing.T) {
	store, _, now := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	assert.Nil(t, store.Refresh(context.Background(), session.SessionID))
	assert.Equal(t, 0, store.ActiveCount())
}

func TestStoreRevokeByToken(t *testing.T) {
	store, users, _ := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(context.Background(), session.SessionID, ""))
	assert.Nil(t, store.Lookup(session.SessionID))
	assert.Equal(t, []string{"u1"}, users.cleared, "pointer cleared even when only the token was given")
}

func TestStoreRevokeByUser(t *testing.T) {
	store, _, _ := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(context.Background(), "", "u1"))
	assert.Nil(t, store.Lookup(session.SessionID))
}

func TestStoreRevokeRequiresSelector(t *testing.T) {
	store, _, _ := newTestStore(t)
	assert.Error(t, store.Revoke(context.Background(), "", ""))
}

func TestStoreRevokeUnknownTokenIsNoop(t *testing.T) {
	store, users, _ := newTestStore(t)
	require.NoError(t, store.Revoke(context.Background(), "ghost", ""))
	assert.Empty(t, users.cleared)
}

func TestStoreSweepRemovesOnlyExpired(t *testing.T) {
	store, _, now := newTestStore(t)

	expired, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)
	live, err := store.Create(context.Background(), "u2", true)
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)

	assert.Equal(t, 1, store.Sweep())
	assert.Nil(t, store.Lookup(expired.SessionID))
	assert.NotNil(t, store.Lookup(live.SessionID))
}

func TestStoreLookupReturnsSnapshot(t *testing.T) {
	store, _, _ := newTestStore(t)

	session, err := store.Create(context.Background(), "u1", false)
	require.NoError(t, err)

	got := store.Lookup(session.SessionID)
	require.NotNil(t, got)
	got.UserID = "tampered"

	again := store.Lookup(session.SessionID)
	require.NotNil(t, again)
	assert.Equal(t, "u1", again.UserID, "callers must not be able to mutate store state")
}
