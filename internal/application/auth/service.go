// Package auth
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Options struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type tokenClaims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Type  string      `json:"typ"`
	jwt.RegisteredClaims
}

type service struct {
	repo      domain.UserRepository
	verifiers map[domain.Provider]domain.IdentityVerifier
	opts      Options
	log       logger.Logger
}

// NewService builds the auth service. verifiers maps federated providers to
// their token verifiers; a provider without one is rejected.
func NewService(repo domain.UserRepository, verifiers map[domain.Provider]domain.IdentityVerifier, opts Options, log logger.Logger) domain.AuthService {
	if verifiers == nil {
		verifiers = map[domain.Provider]domain.IdentityVerifier{}
	}

	return &service{
		repo:      repo,
		verifiers: verifiers,
		opts:      opts,
		log:       log,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hashed := string(hash)
	user, err := s.repo.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: &hashed,
		Name:         req.Name,
		Role:         domain.RoleUser,
		Provider:     domain.ProviderEmail,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID)

	return s.issue(user)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// federated accounts have no password
	if user.PasswordHash == nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	s.touch(ctx, user)

	return s.issue(user)
}

func (s *service) SocialLogin(ctx context.Context, req domain.SocialLoginRequest) (*domain.AuthResponse, error) {
	verifier, ok := s.verifiers[req.Provider]
	if !ok {
		return nil, domain.ErrUnsupportedProvider
	}

	profile, err := verifier.Verify(ctx, req.IDToken)
	if err != nil {
		s.log.Warn("identity token rejected", "provider", req.Provider, "error", err)
		return nil, domain.ErrInvalidCredentials
	}
	if !profile.Verified || profile.Email == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, profile.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		name := profile.Name
		if name == "" {
			name = profile.Email
		}

		user, err = s.repo.Create(ctx, &domain.User{
			ID:       uuid.NewString(),
			Email:    profile.Email,
			Name:     name,
			Role:     domain.RoleUser,
			Provider: req.Provider,
		})
		if err == nil {
			s.log.Info("user registered", "user_id", user.ID, "provider", req.Provider)
		}
	}
	if err != nil {
		return nil, err
	}

	s.touch(ctx, user)

	return s.issue(user)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	claims, err := s.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != domain.TokenTypeRefresh {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	return s.issue(user)
}

func (s *service) ValidateToken(token string) (*domain.Claims, error) {
	var tc tokenClaims

	parsed, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	if tc.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Claims{
		UserID: tc.Subject,
		Email:  tc.Email,
		Role:   tc.Role,
		Type:   tc.Type,
	}, nil
}

func (s *service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *service) touch(ctx context.Context, user *domain.User) {
	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to record login", "user_id", user.ID, "error", err)
		return
	}
	user.LastLoginAt = &now
}

func (s *service) issue(user *domain.User) (*domain.AuthResponse, error) {
	access, err := s.sign(user, domain.TokenTypeAccess, s.opts.AccessExpiry)
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(user, domain.TokenTypeRefresh, s.opts.RefreshExpiry)
	if err != nil {
		return nil, err
	}

	return &domain.AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.opts.AccessExpiry.Seconds()),
	}, nil
}

func (s *service) sign(user *domain.User, typ string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := tokenClaims{
		Email: user.Email,
		Role:  user.Role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}

	return token, nil
}
