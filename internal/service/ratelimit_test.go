package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_NilClientAlwaysAllows(t *testing.T) {
	limiter := NewRateLimiter(nil)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(ctx, userID, "me", 20*time.Second)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.Zero(t, retryAfter)
	}

	assert.NoError(t, limiter.Clear(ctx, userID, "me"))
}

func TestRateLimitKeyIsPerUserAndAction(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	assert.NotEqual(t, rateLimitKey(alice, "me"), rateLimitKey(bob, "me"))
	assert.NotEqual(t, rateLimitKey(alice, "me"), rateLimitKey(alice, "avatar"))
	assert.Equal(t, "rate_limit:user:"+alice.String()+":me", rateLimitKey(alice, "me"))
}
