package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tms-api/internal/model"
)

func newRedisSlots(t *testing.T) (*RedisSlotRepo, *MemoryUserRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	users := NewMemoryUserRepo()
	return NewRedisSlotRepo(rdb, users, "", time.Hour), users, mr
}

func TestRedisSlotRepo_SetReplaceClear(t *testing.T) {
	slots, users, mr := newRedisSlots(t)
	ctx := context.Background()
	_, err := users.Create(ctx, model.User{ID: "u1", Email: "u1@example.com", Role: model.RoleUser})
	require.NoError(t, err)

	hash, err := slots.RefreshTokenHash(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, slots.SetRefreshTokenHash(ctx, "u1", "h1"))
	require.NoError(t, slots.SetRefreshTokenHash(ctx, "u1", "h2"))
	hash, err = slots.RefreshTokenHash(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h2", hash)
	assert.Equal(t, time.Hour, mr.TTL("refresh:u1"))

	require.NoError(t, slots.SetRefreshTokenHash(ctx, "u1", ""))
	assert.False(t, mr.Exists("refresh:u1"))
	require.NoError(t, slots.SetRefreshTokenHash(ctx, "u1", ""))
}

func TestRedisSlotRepo_Expiry(t *testing.T) {
	slots, users, mr := newRedisSlots(t)
	ctx := context.Background()
	_, err := users.Create(ctx, model.User{ID: "u1", Email: "u1@example.com", Role: model.RoleUser})
	require.NoError(t, err)

	require.NoError(t, slots.SetRefreshTokenHash(ctx, "u1", "h1"))
	mr.FastForward(2 * time.Hour)

	hash, err := slots.RefreshTokenHash(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestRedisSlotRepo_UnknownUser(t *testing.T) {
	slots, _, mr := newRedisSlots(t)
	ctx := context.Background()

	assert.ErrorIs(t, slots.SetRefreshTokenHash(ctx, "ghost", "h1"), ErrNotFound)
	assert.False(t, mr.Exists("refresh:ghost"))

	_, err := slots.RefreshTokenHash(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
