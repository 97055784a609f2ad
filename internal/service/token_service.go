package service

import (
	"fmt"
	"time"

	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
)

// Token scopes embedded as a claim so a refresh token can never be used
// where an access token is required, and vice versa.
const (
	ScopeAccessToken  = "access_token"
	ScopeRefreshToken = "refresh_token"
)

const (
	accessTokenTTL  = 300 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	emailTokenTTL   = 24 * time.Hour
)

// TokenClaims carries the subject email plus the scope tag.
type TokenClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

type TokenService interface {
	CreateAccessToken(email string) (string, error)
	CreateRefreshToken(email string) (string, error)
	// CreateEmailToken issues a confirmation token carrying the target email
	// as subject. It expires but has no scope check.
	CreateEmailToken(email string) (string, error)
	// Decode verifies signature, expiry and scope, returning the subject
	// email. Any failure is apperror.ErrInvalidToken; callers must treat it
	// as unauthenticated, never as a default identity.
	Decode(token, expectedScope string) (string, error)
	// ParseEmailToken verifies signature and expiry only.
	ParseEmailToken(token string) (string, error)
}

type tokenService struct {
	secret []byte
	method jwt.SigningMethod
}

func NewTokenService(secret, algorithm string) (TokenService, error) {
	var method jwt.SigningMethod
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm %q: must be HS256 or HS512", algorithm)
	}

	return &tokenService{
		secret: []byte(secret),
		method: method,
	}, nil
}

func (s *tokenService) CreateAccessToken(email string) (string, error) {
	return s.createToken(email, ScopeAccessToken, accessTokenTTL)
}

func (s *tokenService) CreateRefreshToken(email string) (string, error) {
	return s.createToken(email, ScopeRefreshToken, refreshTokenTTL)
}

func (s *tokenService) CreateEmailToken(email string) (string, error) {
	return s.createToken(email, "", emailTokenTTL)
}

func (s *tokenService) createToken(email, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scope,
	}

	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (s *tokenService) Decode(tokenString, expectedScope string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}

	if claims.Scope != expectedScope {
		return "", apperror.ErrInvalidToken
	}

	return claims.Subject, nil
}

func (s *tokenService) ParseEmailToken(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

func (s *tokenService) parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || claims.Subject == "" {
		return nil, apperror.ErrInvalidToken
	}

	return claims, nil
}
