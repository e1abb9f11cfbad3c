package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lesson-payments:lock:"

// releaseScript deletes the key only while it still holds the owner's token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

type ReleaseFunc func(ctx context.Context) error

// Locker guards a sweep so that only one service instance runs it at a time.
type Locker interface {
	Acquire(ctx context.Context, name string) (ReleaseFunc, bool, error)
}

type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

// Acquire returns acquired=false without error when another holder owns the lock.
func (l *RedisLocker) Acquire(ctx context.Context, name string) (ReleaseFunc, bool, error) {
	key := lockKey(name)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		return l.rdb.Eval(ctx, releaseScript, []string{key}, token).Err()
	}, true, nil
}

// NoopLocker always grants the lock. It is used when no redis address is configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (ReleaseFunc, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

func lockKey(name string) string {
	return keyPrefix + name
}
