package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidToken        = errors.New("invalid token")
	ErrUnsupportedProvider = errors.New("unsupported login provider")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SocialLoginRequest struct {
	Provider Provider `json:"provider" validate:"required"`
	IDToken  string   `json:"id_token" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims is what a verified token carries.
type Claims struct {
	UserID string
	Email  string
	Role   Role
	Type   string
}

// IdentityProfile is a verified third-party identity.
type IdentityProfile struct {
	Subject  string
	Email    string
	Name     string
	Verified bool
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*IdentityProfile, error)
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	SocialLogin(ctx context.Context, req SocialLoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(token string) (*Claims, error)
	Me(ctx context.Context, userID string) (*User, error)
}
