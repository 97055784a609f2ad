package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNilClientAlwaysMisses(t *testing.T) {
	c := NewRedisUserCache(nil, 0)
	ctx := context.Background()

	entry, err := c.Get(ctx, "alice@example.com")
	assert.NoError(t, err)
	assert.Nil(t, entry)

	err = c.Set(ctx, &CachedUser{
		ID:       uuid.New(),
		Username: "alice",
		Email:    "alice@example.com",
	})
	assert.NoError(t, err)

	// Still a miss after a Set: nothing is held in memory.
	entry, err = c.Get(ctx, "alice@example.com")
	assert.NoError(t, err)
	assert.Nil(t, entry)

	assert.NoError(t, c.Delete(ctx, "alice@example.com"))
}

func TestUserKeyIsPerEmail(t *testing.T) {
	assert.Equal(t, "user:email:alice@example.com", userKey("alice@example.com"))
	assert.NotEqual(t, userKey("alice@example.com"), userKey("bob@example.com"))
}
