package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr())
	ctx := context.Background()

	_, err := c.Get(ctx, "quest:missing")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "quest:1", `{"id":"1"}`, time.Minute))

	val, err := c.Get(ctx, "quest:1")
	require.NoError(t, err)
	require.Equal(t, `{"id":"1"}`, val)

	require.NoError(t, c.Del(ctx, "quest:1"))
	_, err = c.Get(ctx, "quest:1")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "party:1", "v", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "party:1")
	require.ErrorIs(t, err, ErrCacheMiss)
}
