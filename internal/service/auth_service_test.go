package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/contactkeeper/backend/pkg/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	mu         sync.Mutex
	byEmail    map[string]*model.User
	emailFinds int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return gorm.ErrDuplicatedKey
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emailFinds++
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ConfirmEmail(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsActive = true
	return nil
}

func (r *fakeUserRepo) UpdateAvatarURL(ctx context.Context, email, url string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u.AvatarURL = &url
	return u, nil
}

func (r *fakeUserRepo) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			u.RefreshToken = token
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeRoleRepo struct {
	roles map[string]*model.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[string]*model.Role{
		model.RoleUser:      {ID: 1, Name: model.RoleUser},
		model.RoleAdmin:     {ID: 2, Name: model.RoleAdmin},
		model.RoleModerator: {ID: 3, Name: model.RoleModerator},
	}}
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.ID = uint(len(r.roles) + 1)
	r.roles[role.Name] = role
	return nil
}

func (r *fakeRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	if role, ok := r.roles[name]; ok {
		return role, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoleRepo) FindAll(ctx context.Context) ([]*model.Role, error) {
	out := make([]*model.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

type fakeUserCache struct {
	mu      sync.Mutex
	entries map[string]*cache.CachedUser
	hits    int
}

func newFakeUserCache() *fakeUserCache {
	return &fakeUserCache{entries: map[string]*cache.CachedUser{}}
}

func (c *fakeUserCache) Get(ctx context.Context, email string) (*cache.CachedUser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[email]; ok {
		c.hits++
		return entry, nil
	}
	return nil, nil
}

func (c *fakeUserCache) Set(ctx context.Context, user *cache.CachedUser) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[user.Email] = user
	return nil
}

func (c *fakeUserCache) Delete(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, email)
	return nil
}

type fakeStorage struct {
	url string
}

func (s *fakeStorage) UploadAvatar(ctx context.Context, r io.Reader, key string) (string, error) {
	return s.url + key, nil
}

type authFixture struct {
	svc    AuthService
	users  *fakeUserRepo
	cache  *fakeUserCache
	tokens TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	tokens, err := NewTokenService(testSecret, "HS256")
	require.NoError(t, err)

	users := newFakeUserRepo()
	userCache := newFakeUserCache()

	svc := NewAuthService(users, newFakeRoleRepo(), tokens, userCache, nil, &fakeStorage{url: "https://cdn.example.com/"})

	return &authFixture{svc: svc, users: users, cache: userCache, tokens: tokens}
}

func (f *authFixture) register(t *testing.T, username, email, password string) *model.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func TestAuthService_RegisterHashesPasswordAndStartsInactive(t *testing.T) {
	f := newAuthFixture(t)

	user := f.register(t, "alice", "alice@example.com", "secret123")

	assert.False(t, user.IsActive)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
	require.NotNil(t, user.RoleID)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "alice@example.com", "secret123")

	_, err := f.svc.Register(ctx, dto.RegisterRequest{
		Username: "someone-else",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicateUser)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicateUser)
}

func TestAuthService_LoginIssuesTokenPair(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice", "alice@example.com", "secret123")

	tokens, err := f.svc.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tokens.TokenType)

	email, err := f.tokens.Decode(tokens.AccessToken, ScopeAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	// The refresh token is persisted on the user row.
	stored, err := f.users.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, tokens.RefreshToken, *stored.RefreshToken)
}

func TestAuthService_LoginWrongCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "alice@example.com", "secret123")

	_, err := f.svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.svc.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestAuthService_RefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "alice@example.com", "secret123")
	tokens, err := f.svc.Login(ctx, "alice", "secret123")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)

	refreshed, err := f.svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestAuthService_ConfirmEmailFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "alice@example.com", "secret123")

	token, err := f.tokens.CreateEmailToken("alice@example.com")
	require.NoError(t, err)

	msg, err := f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, msgEmailConfirmed, msg)

	stored, err := f.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	// Confirming again is idempotent.
	msg, err = f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, msgEmailAlreadyActive, msg)
}

func TestAuthService_ConfirmEmailBadToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.ConfirmEmail(context.Background(), "garbage")
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestAuthService_RequestEmailDoesNotRevealAccounts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "alice@example.com", "secret123")

	known, err := f.svc.RequestEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	unknown, err := f.svc.RequestEmail(ctx, "nobody@example.com")
	require.NoError(t, err)

	// Same reply either way.
	assert.Equal(t, known, unknown)
}

func TestAuthService_ResolveUserPopulatesCache(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.register(t, "alice", "alice@example.com", "secret123")
	token, err := f.tokens.CreateAccessToken("alice@example.com")
	require.NoError(t, err)

	findsBefore := f.users.emailFinds

	first, err := f.svc.ResolveUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", first.Username)
	assert.Equal(t, findsBefore+1, f.users.emailFinds)

	// Second resolve is served from the cache, no repository hit.
	second, err := f.svc.ResolveUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", second.Username)
	assert.Equal(t, findsBefore+1, f.users.emailFinds)
	assert.Equal(t, 1, f.cache.hits)
}

func TestAuthService_ResolveUserRejectsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)

	f.register(t, "alice", "alice@example.com", "secret123")
	token, err := f.tokens.CreateRefreshToken("alice@example.com")
	require.NoError(t, err)

	_, err = f.svc.ResolveUser(context.Background(), token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestAuthService_UpdateAvatarRefreshesCache(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice", "alice@example.com", "secret123")

	updated, err := f.svc.UpdateAvatar(ctx, user, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/"+user.ID.String(), *updated.AvatarURL)

	cached, err := f.cache.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, *updated.AvatarURL, *cached.AvatarURL)
}
