package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contactkeeper/backend/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	lastAction string
	lastUserID uuid.UUID
}

func (l *stubLimiter) Allow(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (bool, time.Duration, error) {
	l.lastAction = action
	l.lastUserID = userID
	return l.allowed, l.retryAfter, l.err
}

func newLimitedRouter(limiter *stubLimiter, user *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)

	m := NewRateLimitMiddleware(limiter)

	router := gin.New()
	router.GET("/me",
		func(c *gin.Context) {
			if user != nil {
				c.Set("user", user)
			}
		},
		m.Limit("me", 20*time.Second),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		},
	)

	return router
}

func doLimitedRequest(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	return w
}

func TestRateLimit_AllowedPasses(t *testing.T) {
	user := &model.User{ID: uuid.New()}
	limiter := &stubLimiter{allowed: true}

	w := doLimitedRequest(newLimitedRouter(limiter, user))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "me", limiter.lastAction)
	assert.Equal(t, user.ID, limiter.lastUserID)
}

func TestRateLimit_DeniedRepliesTooManyRequests(t *testing.T) {
	limiter := &stubLimiter{allowed: false, retryAfter: 13 * time.Second}

	w := doLimitedRequest(newLimitedRouter(limiter, &model.User{ID: uuid.New()}))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "13", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "13 seconds")
}

func TestRateLimit_LimiterFailureFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis down")}

	w := doLimitedRequest(newLimitedRouter(limiter, &model.User{ID: uuid.New()}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_MissingUserIsUnauthorized(t *testing.T) {
	limiter := &stubLimiter{allowed: true}

	w := doLimitedRequest(newLimitedRouter(limiter, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
