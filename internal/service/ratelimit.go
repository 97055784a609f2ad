package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a per-user, per-action cooldown backed by redis.
// The window is reserved with SETNX, so the first request in a window wins
// and the key's TTL tells callers how long to wait. A nil client disables
// limiting entirely, the same degradation the user cache applies.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

func rateLimitKey(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

// Allow reserves the action for the user. When the previous reservation has
// not expired yet it returns false together with the remaining wait.
func (l *RateLimiter) Allow(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (bool, time.Duration, error) {
	if l == nil || l.rdb == nil {
		return true, 0, nil
	}

	key := rateLimitKey(userID, action)

	wasSet, err := l.rdb.SetNX(ctx, key, "locked", window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if wasSet {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		ttl = window
	}

	return false, ttl, nil
}

// Clear releases a reservation early, for callers that reserve up front and
// roll back when the guarded operation fails.
func (l *RateLimiter) Clear(ctx context.Context, userID uuid.UUID, action string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, rateLimitKey(userID, action)).Err()
}
