package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/tms-api/internal/model"
	"github.com/redis/go-redis/v9"
)

// UserLookup is the part of a user store the Redis slot needs to decide
// whether a user exists.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// RedisSlotRepo keeps the refresh-token slot in Redis instead of on the
// users row.  One key per user; SET replaces and DEL clears, and the key
// expires together with the refresh token it guards.
type RedisSlotRepo struct {
	rdb    *redis.Client
	users  UserLookup
	prefix string
	ttl    time.Duration
}

// NewRedisSlotRepo builds a slot store.  ttl should equal the refresh
// token lifetime; zero keeps keys forever.
func NewRedisSlotRepo(rdb *redis.Client, users UserLookup, prefix string, ttl time.Duration) *RedisSlotRepo {
	if prefix == "" {
		prefix = "refresh"
	}
	return &RedisSlotRepo{rdb: rdb, users: users, prefix: prefix, ttl: ttl}
}

func (r *RedisSlotRepo) key(userID string) string { return r.prefix + ":" + userID }

// SetRefreshTokenHash stores hash for userID; an empty hash clears the slot.
func (r *RedisSlotRepo) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	if _, err := r.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if hash == "" {
		return r.rdb.Del(ctx, r.key(userID)).Err()
	}
	return r.rdb.Set(ctx, r.key(userID), hash, r.ttl).Err()
}

// RefreshTokenHash returns the slot value, empty when cleared or expired.
func (r *RedisSlotRepo) RefreshTokenHash(ctx context.Context, userID string) (string, error) {
	if _, err := r.users.GetByID(ctx, userID); err != nil {
		return "", err
	}
	hash, err := r.rdb.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return hash, err
}
