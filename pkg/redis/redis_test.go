package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	srv := miniredis.RunT(t)
	cli := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	SetClient(cli)
	t.Cleanup(func() {
		_ = cli.Close()
		SetClient(nil)
	})
	return srv
}

func TestTokenBlacklist(t *testing.T) {
	srv := setupMiniRedis(t)
	ctx := context.Background()

	revoked, err := IsTokenBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, BlacklistToken(ctx, "tok", time.Minute))

	revoked, err = IsTokenBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	srv.FastForward(2 * time.Minute)
	revoked, err = IsTokenBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSetNX(t *testing.T) {
	setupMiniRedis(t)
	ctx := context.Background()

	ok, err := SetNX(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = SetNX(ctx, "lock", "2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestHelpersWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	_, err := Get(ctx, "k")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, Enabled())

	_, err = IsTokenBlacklisted(ctx, "tok")
	assert.ErrorIs(t, err, ErrDisabled)
}
