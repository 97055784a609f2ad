package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Limiter is the per-user cooldown check backing RateLimitMiddleware.
type Limiter interface {
	Allow(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (bool, time.Duration, error)
}

type RateLimitMiddleware struct {
	limiter Limiter
}

func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit allows one request per user per window for the named action.
// Must run after RequireAuth. A limiter outage fails open: locking users
// out of their own account endpoints is worse than skipping a cooldown.
func (m *RateLimitMiddleware) Limit(action string, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperror.ErrUnauthorized.Error()})
			c.Abort()
			return
		}

		user, ok := value.(*model.User)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperror.ErrUnauthorized.Error()})
			c.Abort()
			return
		}

		allowed, retryAfter, err := m.limiter.Allow(c.Request.Context(), user.ID, action, window)
		if err != nil {
			log.Printf("rate limit check failed for %s/%s: %v", user.ID, action, err)
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("you are doing that too fast. Please wait %.0f seconds", retryAfter.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
