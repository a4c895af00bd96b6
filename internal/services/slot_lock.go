package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gig-booking/internal/status"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlotLocker serialises decisions on a slot across instances. The store's
// conditional write stays authoritative; the lock only keeps concurrent
// decisions from racing into it.
type SlotLocker interface {
	Lock(ctx context.Context, slotID string) (unlock func(), err error)
}

// releaseLockScript deletes the key only if it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisSlotLock struct {
	Redis redis.Cmdable
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

// NewRedisSlotLock holds locks for at most ttl and waits up to wait to obtain
// one.
func NewRedisSlotLock(client redis.Cmdable, ttl, wait time.Duration) *RedisSlotLock {
	return &RedisSlotLock{Redis: client, ttl: ttl, wait: wait, retry: 25 * time.Millisecond}
}

func slotLockKey(slotID string) string {
	return fmt.Sprintf("lock:slot:%s", slotID)
}

func (l *RedisSlotLock) Lock(ctx context.Context, slotID string) (func(), error) {
	key := slotLockKey(slotID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.Redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, status.ErrSlotBusy.Wrap(ctx.Err())
			}
			return nil, status.Internal(fmt.Errorf("acquire slot lock: %w", err))
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, status.ErrSlotBusy
		}
		select {
		case <-ctx.Done():
			return nil, status.ErrSlotBusy.Wrap(ctx.Err())
		case <-time.After(l.retry):
		}
	}

	return func() {
		// the request context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := releaseLockScript.Run(releaseCtx, l.Redis, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			slog.Warn("failed to release slot lock", "error", err, "slot_id", slotID)
		}
	}, nil
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }
