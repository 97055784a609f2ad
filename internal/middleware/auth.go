package middleware

import (
	"net/http"
	"strings"

	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/internal/service"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	auth service.AuthService
}

func NewAuthMiddleware(auth service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth resolves the bearer token into a user (through the cache) and
// stores it on the request context. Missing, invalid, expired or wrong-scope
// tokens all get the same fixed 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperror.ErrUnauthorized.Error()})
			c.Abort()
			return
		}

		user, err := m.auth.ResolveUser(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperror.ErrUnauthorized.Error()})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// RequireRoles is a pure authorization predicate: it compares the resolved
// user's role name against the allow-list. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}

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

		if _, ok := allowedSet[user.Role.Name]; !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": apperror.ErrForbidden.Error()})
			c.Abort()
			return
		}

		c.Next()
	}
}
