package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreLifecycle(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", false, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)
	require.False(t, got.Superuser)

	require.NoError(t, store.Delete(ctx, sess.Token))
	_, err = store.Get(ctx, sess.Token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreExpiry(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", true, -time.Second)
	require.NoError(t, err)

	_, err = store.Get(ctx, sess.Token)
	require.ErrorIs(t, err, ErrNotFound)
}
