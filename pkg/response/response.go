package response

import (
	"log"
	"net/http"

	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// CurrentUser retrieves the authenticated user set by the auth middleware.
func CurrentUser(c *gin.Context) (*model.User, error) {
	value, exists := c.Get("user")
	if !exists {
		return nil, apperror.ErrUnauthorized
	}

	user, ok := value.(*model.User)
	if !ok {
		return nil, apperror.ErrUnauthorized
	}

	return user, nil
}

// Error writes a standardized error response.
func Error(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors, never leak them to the client
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
		c.JSON(code, gin.H{"error": apperror.ErrInternal.Error()})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
