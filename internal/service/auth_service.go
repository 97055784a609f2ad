package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/internal/repository"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/contactkeeper/backend/pkg/cache"
	"github.com/contactkeeper/backend/pkg/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	msgEmailConfirmed       = "Email confirmed"
	msgEmailAlreadyActive   = "Your email is already confirmed"
	msgCheckConfirmationBox = "Check your email for confirmation."
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, username, password string) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	ConfirmEmail(ctx context.Context, token string) (string, error)
	RequestEmail(ctx context.Context, email string) (string, error)
	// ResolveUser turns a bearer token into a user record, reading through
	// the user cache in front of the database.
	ResolveUser(ctx context.Context, token string) (*model.User, error)
	UpdateAvatar(ctx context.Context, user *model.User, file io.Reader) (*model.User, error)
}

type authService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	tokens    TokenService
	userCache cache.UserCache
	mailer    MailerService
	storage   storage.ImageStorage
}

func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	tokens TokenService,
	userCache cache.UserCache,
	mailer MailerService,
	imageStorage storage.ImageStorage,
) AuthService {
	return &authService{
		users:     users,
		roles:     roles,
		tokens:    tokens,
		userCache: userCache,
		mailer:    mailer,
		storage:   imageStorage,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterRequest) (*model.User, error) {
	if err := s.ensureUserUnique(ctx, input.Email, input.Username); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByName(ctx, model.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("default role lookup failed: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roleID := role.ID
	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		// Inactive until the confirmation link is followed.
		IsActive: false,
		RoleID:   &roleID,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrDuplicateUser
		}
		return nil, err
	}

	created, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(created)

	return created, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrUnauthorized
	}

	return s.issueTokenPair(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	email, err := s.tokens.Decode(refreshToken, ScopeRefreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrInvalidToken
		}
		return nil, err
	}

	return s.issueTokenPair(ctx, user)
}

func (s *authService) issueTokenPair(ctx context.Context, user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.tokens.CreateAccessToken(user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.CreateRefreshToken(user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (s *authService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	email, err := s.tokens.ParseEmailToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: verification error", apperror.ErrBadRequest)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: verification error", apperror.ErrBadRequest)
		}
		return "", err
	}

	if user.IsActive {
		return msgEmailAlreadyActive, nil
	}

	if err := s.users.ConfirmEmail(ctx, email); err != nil {
		return "", err
	}

	return msgEmailConfirmed, nil
}

func (s *authService) RequestEmail(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Do not reveal whether the address is registered.
			return msgCheckConfirmationBox, nil
		}
		return "", err
	}

	if user.IsActive {
		return msgEmailAlreadyActive, nil
	}

	s.sendConfirmation(user)

	return msgCheckConfirmationBox, nil
}

func (s *authService) ResolveUser(ctx context.Context, token string) (*model.User, error) {
	email, err := s.tokens.Decode(token, ScopeAccessToken)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	if cached, err := s.userCache.Get(ctx, email); err == nil && cached != nil {
		return userFromCache(cached), nil
	} else if err != nil {
		log.Printf("user cache read failed for %s: %v", email, err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}

	if err := s.userCache.Set(ctx, cacheEntry(user)); err != nil {
		log.Printf("user cache write failed for %s: %v", email, err)
	}

	return user, nil
}

func (s *authService) UpdateAvatar(ctx context.Context, user *model.User, file io.Reader) (*model.User, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}

	url, err := s.storage.UploadAvatar(ctx, file, user.ID.String())
	if err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateAvatarURL(ctx, user.Email, url)
	if err != nil {
		return nil, err
	}

	// Refresh the cached entry so the new avatar is visible to concurrent
	// sessions right away instead of after TTL expiry.
	if err := s.userCache.Set(ctx, cacheEntry(updated)); err != nil {
		log.Printf("user cache refresh failed for %s: %v", updated.Email, err)
	}

	return updated, nil
}

func (s *authService) ensureUserUnique(ctx context.Context, email, username string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return apperror.ErrDuplicateUser
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return apperror.ErrDuplicateUser
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return nil
}

func (s *authService) sendConfirmation(user *model.User) {
	if s.mailer == nil {
		return
	}

	token, err := s.tokens.CreateEmailToken(user.Email)
	if err != nil {
		log.Printf("failed to create email token for %s: %v", user.Email, err)
		return
	}

	// Fire and forget: registration must not block on SMTP.
	go func() {
		if err := s.mailer.SendConfirmation(user.Email, user.Username, token); err != nil {
			log.Printf("failed to send confirmation email: %v", err)
		}
	}()
}

func cacheEntry(user *model.User) *cache.CachedUser {
	return &cache.CachedUser{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		RoleName:  user.Role.Name,
		IsActive:  user.IsActive,
		AvatarURL: user.AvatarURL,
	}
}

func userFromCache(cached *cache.CachedUser) *model.User {
	return &model.User{
		ID:        cached.ID,
		Username:  cached.Username,
		Email:     cached.Email,
		IsActive:  cached.IsActive,
		AvatarURL: cached.AvatarURL,
		Role:      model.Role{Name: cached.RoleName},
	}
}
