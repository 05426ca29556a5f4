package infra

import (
	"context"
	"errors"
	"time"

	"tillledger/internal/apierror"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes session state transitions across service
// instances. Lock contention surfaces to the caller as a conflict so the
// client can simply retry.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

// WithLock obtains the named lock, runs fn, and releases. No retry on
// contention: concurrent state transitions on the same key are expected
// to lose, not queue.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return apierror.Conflict("another operation is in progress, retry shortly")
	}
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()

	return fn()
}
