package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/vandelay/guacbot/internal/models"
)

const lockKeyPrefix = "guac:settlement:lock:"

// releaseScript deletes the lock only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// PeriodLock keeps two settlement runs for the same period from overlapping.
// The lock expires after ttl so a crashed run cannot hold it forever.
type PeriodLock struct {
	client   *redis.Client
	ttl      time.Duration
	newToken func() string
}

func NewPeriodLock(client *redis.Client, ttl time.Duration) *PeriodLock {
	return &PeriodLock{client: client, ttl: ttl, newToken: uuid.NewString}
}

// Acquire fails with models.ErrPeriodLocked when another run holds the key.
// Without a Redis client it always succeeds; the settlement_runs table still
// rejects a second commit for the period.
func (l *PeriodLock) Acquire(ctx context.Context, period string) (func(context.Context) error, error) {
	if l.client == nil {
		slog.Warn("[LOCK] redis unavailable, running without period lock", "period", period)
		return func(context.Context) error { return nil }, nil
	}

	key := lockKeyPrefix + period
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, models.ErrPeriodLocked
	}

	return func(ctx context.Context) error {
		return l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
	}, nil
}
