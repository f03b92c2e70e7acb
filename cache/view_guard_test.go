package cache

import (
	"context"
	"testing"

	"kb-portal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewGuardKey(t *testing.T) {
	assert.Equal(t, "view:seen:12:2024-05-10:user:3", viewGuardKey(12, "user:3", "2024-05-10"))
}

func TestNoopGuard(t *testing.T) {
	var g ViewGuard = NoopGuard{}
	first, err := g.Claim(context.Background(), 1, "ip:1.1.1.1", "2024-05-10")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = g.Claim(context.Background(), 1, "ip:1.1.1.1", "2024-05-10")
	require.NoError(t, err)
	assert.True(t, first)
	assert.NoError(t, g.Release(context.Background(), 1, "ip:1.1.1.1", "2024-05-10"))
}

func TestNewClientDisabledWithoutAddr(t *testing.T) {
	rdb, err := NewClient(config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestNewClientUnreachable(t *testing.T) {
	rdb, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, rdb)
}

func TestRedisViewGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	var g ViewGuard = NewRedisViewGuard(rdb)

	first, err := g.Claim(ctx, 7, "user:3", "2024-05-10")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, ViewGuardTTL, mr.TTL(viewGuardKey(7, "user:3", "2024-05-10")))

	again, err := g.Claim(ctx, 7, "user:3", "2024-05-10")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := g.Claim(ctx, 7, "user:3", "2024-05-11")
	require.NoError(t, err)
	assert.True(t, other, "a new day is a new claim")

	require.NoError(t, g.Release(ctx, 7, "user:3", "2024-05-10"))
	assert.False(t, mr.Exists(viewGuardKey(7, "user:3", "2024-05-10")))
	released, err := g.Claim(ctx, 7, "user:3", "2024-05-10")
	require.NoError(t, err)
	assert.True(t, released)

	mr.FastForward(ViewGuardTTL)
	expired, err := g.Claim(ctx, 7, "user:3", "2024-05-11")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestRedisViewGuardServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	mr.Close()
	_, err = NewRedisViewGuard(rdb).Claim(context.Background(), 1, "ip:10.0.0.1", "2024-05-10")
	assert.Error(t, err)
}
