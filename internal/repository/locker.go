package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serialises load-modify-save cycles. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context) (func(), error)
}

// LocalLocker is an in-process lock that honours context cancellation.
type LocalLocker struct {
	ch chan struct{}
}

// NewLocalLocker builds an unlocked LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{ch: make(chan struct{}, 1)}
}

// Lock blocks until the lock is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		return func() { <-l.ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire store lock: %w", ctx.Err())
	}
}

// ErrLockTimeout is returned when a distributed lock could not be taken in time.
var ErrLockTimeout = errors.New("store lock wait timed out")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-key lease lock for deployments running several
// API processes against one store. The lease expires after ttl so a crashed
// holder cannot block the store forever.
type RedisLocker struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

// NewRedisLocker builds a RedisLocker on key.
func NewRedisLocker(client redis.Cmdable, key string, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisLocker{client: client, key: key, ttl: ttl, wait: wait, poll: 50 * time.Millisecond}
}

// Lock polls SETNX until it wins, the wait budget runs out or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire redis lock %s: %w", l.key, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire redis lock %s: %w", l.key, ctx.Err())
		case <-timer.C:
		}
	}
}
