package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/auth-service/sessions"
	"github.com/inkwell-cms/auth-service/sessions/redisstore"
)

func newTestStore(t *testing.T) (*redisstore.Store, *time.Time) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := redisstore.New(client, redisstore.WithNowFunc(func() time.Time { return now }))
	return store, &now
}

func newTestSession(now time.Time) *sessions.Session {
	return &sessions.Session{
		ID:             "session-1",
		UserID:         "user-1",
		RefreshToken:   "token-old",
		IPAddress:      "203.0.113.7",
		UserAgent:      "Mozilla/5.0 (test)",
		LoginType:      sessions.LoginTypeEmail,
		Active:         true,
		ExpiresAt:      now.Add(7 * 24 * time.Hour),
		CreatedAt:      now,
		LastActivityAt: now,
		UpdatedAt:      now,
	}
}

func TestCreateAndFindActive(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()
	session := newTestSession(*now)

	require.NoError(t, store.Create(ctx, session))

	found, err := store.FindActive(ctx, "session-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, session.UserID, found.UserID)
	require.Equal(t, session.RefreshToken, found.RefreshToken)
	require.True(t, found.Active)
	require.Equal(t, session.ExpiresAt.Unix(), found.ExpiresAt.Unix())

	_, err = store.FindActive(ctx, "session-1", "someone-else")
	require.ErrorIs(t, err, sessions.ErrNotFound)

	_, err = store.FindActive(ctx, "missing", "user-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestFindActiveByRefreshToken(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(*now)))

	found, err := store.FindActiveByRefreshToken(ctx, "token-old", "user-1")
	require.NoError(t, err)
	require.Equal(t, "session-1", found.ID)

	_, err = store.FindActiveByRefreshToken(ctx, "token-unknown", "user-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestRotateSingleUse(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(*now)))

	newExpiry := now.Add(14 * 24 * time.Hour)
	rotated, err := store.Rotate(ctx, "session-1", "token-old", "token-new", newExpiry, *now)
	require.NoError(t, err)
	require.True(t, rotated)

	// The replay with the consumed value fails; so does a rotation from
	// a guessed token.
	rotated, err = store.Rotate(ctx, "session-1", "token-old", "token-newer", newExpiry, *now)
	require.NoError(t, err)
	require.False(t, rotated)

	// The new token is now the indexed credential.
	found, err := store.FindActiveByRefreshToken(ctx, "token-new", "user-1")
	require.NoError(t, err)
	require.Equal(t, "token-new", found.RefreshToken)
	require.Equal(t, newExpiry.Unix(), found.ExpiresAt.Unix())

	_, err = store.FindActiveByRefreshToken(ctx, "token-old", "user-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestRotateExtendsKeyTTLs(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := redisstore.New(client, redisstore.WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(now))) // 7-day expiry

	// Rotate far beyond the create-time expiry.
	newExpiry := now.Add(100 * 24 * time.Hour)
	rotated, err := store.Rotate(ctx, "session-1", "token-old", "token-new", newExpiry, now)
	require.NoError(t, err)
	require.True(t, rotated)

	// Both keys now live until the extended expiry plus the 30-day audit
	// retention, not the create-time 7d+30d.
	wantTTL := 130 * 24 * time.Hour
	hashTTL, err := client.TTL(ctx, "session:session-1").Result()
	require.NoError(t, err)
	require.Equal(t, wantTTL, hashTTL)

	indexTTL, err := client.TTL(ctx, "session:rt:token-new").Result()
	require.NoError(t, err)
	require.Equal(t, wantTTL, indexTTL)

	// Past the create-time TTL the session is still resolvable.
	mr.FastForward(38 * 24 * time.Hour)
	now = now.Add(38 * 24 * time.Hour)

	found, err := store.FindActiveByRefreshToken(ctx, "token-new", "user-1")
	require.NoError(t, err)
	require.Equal(t, "session-1", found.ID)
	require.Equal(t, newExpiry.Unix(), found.ExpiresAt.Unix())
}

func TestRotateInactiveOrExpired(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	session := newTestSession(*now)
	require.NoError(t, store.Create(ctx, session))

	inactive := false
	require.NoError(t, store.Update(ctx, "session-1", sessions.Patch{Active: &inactive}))

	rotated, err := store.Rotate(ctx, "session-1", "token-old", "token-new", now.Add(time.Hour), *now)
	require.NoError(t, err)
	require.False(t, rotated)
}

func TestRotateAfterHardExpiry(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(*now)))

	*now = now.Add(8 * 24 * time.Hour) // past the 7-day expiry

	rotated, err := store.Rotate(ctx, "session-1", "token-old", "token-new", now.Add(time.Hour), *now)
	require.NoError(t, err)
	require.False(t, rotated)
}

func TestDeactivateByRefreshToken(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(*now)))
	require.NoError(t, store.DeactivateByRefreshToken(ctx, "token-old"))

	_, err := store.FindActive(ctx, "session-1", "user-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)

	// Idempotent on unknown tokens.
	require.NoError(t, store.DeactivateByRefreshToken(ctx, "token-old"))
	require.NoError(t, store.DeactivateByRefreshToken(ctx, "never-existed"))

	// The row survives deactivation for the audit view.
	list, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, list[0].Active)
}

func TestListByUser(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	first := newTestSession(*now)
	second := newTestSession(*now)
	second.ID = "session-2"
	second.RefreshToken = "token-2"
	second.CreatedAt = now.Add(time.Hour)

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	list, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Newest first.
	require.Equal(t, "session-2", list[0].ID)

	list, err = store.ListByUser(ctx, "user-unknown")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDelete(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(*now)))
	require.NoError(t, store.Delete(ctx, "session-1"))

	_, err := store.FindActive(ctx, "session-1", "user-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)
	_, err = store.FindActiveByRefreshToken(ctx, "token-old", "user-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)

	list, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, list)

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, "session-1"))
}

func TestUpdateActiveIsOneWay(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(*now)))

	inactive := false
	require.NoError(t, store.Update(ctx, "session-1", sessions.Patch{Active: &inactive}))

	active := true
	require.NoError(t, store.Update(ctx, "session-1", sessions.Patch{Active: &active}))

	_, err := store.FindActive(ctx, "session-1", "user-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)

	require.ErrorIs(t, store.Update(ctx, "missing", sessions.Patch{Active: &inactive}), sessions.ErrNotFound)
}
