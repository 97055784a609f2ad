package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cachedUserVersion is bumped whenever CachedUser changes shape. Entries
// written by an older build deserialize into a mismatched version and are
// treated as cache misses instead of being trusted.
const cachedUserVersion = 1

// DefaultUserTTL bounds how stale a cached user may get. Role or activation
// changes take up to this long to reach already-cached sessions.
const DefaultUserTTL = 300 * time.Second

// CachedUser is the cache payload for a resolved user. It is a plain DTO,
// deliberately decoupled from the persistence model so schema migrations
// don't invalidate the cache format silently.
type CachedUser struct {
	Version   int       `json:"v"`
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	RoleName  string    `json:"role_name"`
	IsActive  bool      `json:"is_active"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// UserCache is a read-through cache for authenticated-user lookups.
type UserCache interface {
	Get(ctx context.Context, email string) (*CachedUser, error)
	Set(ctx context.Context, user *CachedUser) error
	Delete(ctx context.Context, email string) error
}

type redisUserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisUserCache wraps a redis client. A nil client yields a cache that
// always misses, so the resolver degrades to plain database lookups.
func NewRedisUserCache(rdb *redis.Client, ttl time.Duration) UserCache {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return &redisUserCache{rdb: rdb, ttl: ttl}
}

func userKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

func (c *redisUserCache) Get(ctx context.Context, email string) (*CachedUser, error) {
	if c.rdb == nil {
		return nil, nil
	}

	payload, err := c.rdb.Get(ctx, userKey(email)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user from cache: %w", err)
	}

	var user CachedUser
	if err := json.Unmarshal(payload, &user); err != nil {
		// Corrupt entry: drop it and report a miss.
		c.rdb.Del(ctx, userKey(email))
		return nil, nil
	}

	if user.Version != cachedUserVersion {
		c.rdb.Del(ctx, userKey(email))
		return nil, nil
	}

	return &user, nil
}

func (c *redisUserCache) Set(ctx context.Context, user *CachedUser) error {
	if c.rdb == nil || user == nil {
		return nil
	}

	user.Version = cachedUserVersion
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user for cache: %w", err)
	}

	if err := c.rdb.Set(ctx, userKey(user.Email), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write user to cache: %w", err)
	}

	return nil
}

func (c *redisUserCache) Delete(ctx context.Context, email string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, userKey(email)).Err()
}
