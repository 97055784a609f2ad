package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthService struct {
	users map[string]*model.User
}

func (s *stubAuthService) Register(ctx context.Context, input dto.RegisterRequest) (*model.User, error) {
	return nil, nil
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	return nil, nil
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	return nil, nil
}

func (s *stubAuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	return "", nil
}

func (s *stubAuthService) RequestEmail(ctx context.Context, email string) (string, error) {
	return "", nil
}

func (s *stubAuthService) ResolveUser(ctx context.Context, token string) (*model.User, error) {
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, apperror.ErrUnauthorized
}

func (s *stubAuthService) UpdateAvatar(ctx context.Context, user *model.User, file io.Reader) (*model.User, error) {
	return nil, nil
}

func newTestRouter(roleName string, allowed ...string) (*gin.Engine, string) {
	gin.SetMode(gin.TestMode)

	token := "valid-token"
	auth := &stubAuthService{users: map[string]*model.User{
		token: {Username: "alice", Role: model.Role{Name: roleName}},
	}}

	m := NewAuthMiddleware(auth)

	router := gin.New()
	group := router.Group("/", m.RequireAuth())
	if len(allowed) > 0 {
		group.Use(m.RequireRoles(allowed...))
	}
	group.GET("/ping", func(c *gin.Context) {
		value, _ := c.Get("user")
		user := value.(*model.User)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})

	return router, token
}

func doRequest(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	router, _ := newTestRouter(model.RoleUser)

	w := doRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	router, token := newTestRouter(model.RoleUser)

	// No "Bearer" prefix.
	w := doRequest(router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, "Basic "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	router, _ := newTestRouter(model.RoleUser)

	w := doRequest(router, "Bearer bogus")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ValidTokenSetsUser(t *testing.T) {
	router, token := newTestRouter(model.RoleUser)

	w := doRequest(router, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestRequireRoles_AllowedRolePasses(t *testing.T) {
	router, token := newTestRouter(model.RoleModerator, model.RoleUser, model.RoleAdmin, model.RoleModerator)

	w := doRequest(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoles_DisallowedRoleForbidden(t *testing.T) {
	router, token := newTestRouter(model.RoleUser, model.RoleAdmin)

	w := doRequest(router, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), apperror.ErrForbidden.Error())
}
