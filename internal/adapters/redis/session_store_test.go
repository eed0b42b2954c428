package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/session-authority/internal/domain/auth"
	"github.com/target/session-authority/internal/testutil"
)

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithPrefix(client, "authsession-test:")
	ctx := context.Background()

	sess := domainauth.Session{
		ID:        "test-session-1",
		UserID:    "user-123",
		Email:     "user@example.com",
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}

	require.NoError(t, store.Save(ctx, sess))

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, retrieved.ID)
	assert.Equal(t, sess.UserID, retrieved.UserID)
	assert.Equal(t, sess.Email, retrieved.Email)
	assert.WithinDuration(t, sess.ExpiresAt, retrieved.ExpiresAt, time.Second)
}

func TestSessionStore_GetMissing(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithPrefix(client, "authsession-test:")

	_, err := store.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_SaveRejectsExpired(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithPrefix(client, "authsession-test:")

	err := store.Save(context.Background(), domainauth.Session{
		ID:        "expired-session",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	assert.Error(t, err)
}

func TestSessionStore_SaveRequiresID(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithPrefix(client, "authsession-test:")

	err := store.Save(context.Background(), domainauth.Session{
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(time.Minute),
	})
	assert.Error(t, err)
}

func TestSessionStore_Delete(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithPrefix(client, "authsession-test:")
	ctx := context.Background()

	sess := domainauth.Session{
		ID:        "delete-me",
		UserID:    "user-123",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Delete(ctx, "delete-me"))

	_, err := store.Get(ctx, "delete-me")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent token is not an error.
	assert.NoError(t, store.Delete(ctx, "delete-me"))
}
