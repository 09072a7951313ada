package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = strings.ToLower(u.Email)
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailAlreadyExists
		}
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) TouchLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

type fakeVerifier struct {
	profile *domain.IdentityProfile
	err     error
}

func (v *fakeVerifier) Verify(context.Context, string) (*domain.IdentityProfile, error) {
	return v.profile, v.err
}

func newTestService(repo domain.UserRepository, verifier domain.IdentityVerifier) domain.AuthService {
	verifiers := map[domain.Provider]domain.IdentityVerifier{}
	if verifier != nil {
		verifiers[domain.ProviderGoogle] = verifier
	}

	return NewService(repo, verifiers, Options{
		Secret:        testSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	}, logger.NewNop())
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	res, err := svc.Register(ctx, domain.RegisterRequest{Email: "Ops@Example.com", Password: "s3cret-pass", Name: "Ops"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.ExpiresIn != 900 {
		t.Fatalf("unexpected response %+v", res)
	}
	if *res.User.PasswordHash == "s3cret-pass" {
		t.Fatal("password stored in clear text")
	}

	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "ops@example.com", Password: "another-pass", Name: "Dup"}); !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Fatalf("duplicate register err = %v", err)
	}

	login, err := svc.Login(ctx, domain.LoginRequest{Email: "ops@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}

	claims, err := svc.ValidateToken(login.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != res.User.ID || claims.Type != domain.TokenTypeAccess || claims.Role != domain.RoleUser {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLoginRejects(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, domain.RegisterRequest{Email: "a@example.com", Password: "right-pass", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	repo.Create(ctx, &domain.User{ID: "g-1", Email: "g@example.com", Name: "G", Provider: domain.ProviderGoogle})

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"wrong password", "a@example.com", "wrong-pass"},
		{"unknown email", "nobody@example.com", "right-pass"},
		{"federated account", "g@example.com", "right-pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, domain.LoginRequest{Email: tt.email, Password: tt.pass})
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), nil)
	ctx := context.Background()

	res, err := svc.Register(ctx, domain.RegisterRequest{Email: "a@example.com", Password: "right-pass", Name: "A"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Refresh(ctx, res.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}

	next, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.AccessToken == res.AccessToken {
		t.Fatal("refresh returned the same access token")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), nil)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Type: domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Type: domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	foreignToken, _ := foreign.SignedString([]byte("other-secret"))

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	})
	noExpiryToken, _ := noExpiry.SignedString([]byte(testSecret))

	for name, token := range map[string]string{
		"garbage":   "not-a-token",
		"expired":   expiredToken,
		"foreign":   foreignToken,
		"no expiry": noExpiryToken,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ValidateToken(token); !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestSocialLogin(t *testing.T) {
	repo := newFakeUserRepo()
	verifier := &fakeVerifier{profile: &domain.IdentityProfile{Subject: "123", Email: "new@example.com", Name: "New", Verified: true}}
	svc := newTestService(repo, verifier)
	ctx := context.Background()

	res, err := svc.SocialLogin(ctx, domain.SocialLoginRequest{Provider: domain.ProviderGoogle, IDToken: "id-token"})
	if err != nil {
		t.Fatalf("SocialLogin: %v", err)
	}
	if res.User.Provider != domain.ProviderGoogle || res.User.PasswordHash != nil {
		t.Fatalf("unexpected user %+v", res.User)
	}

	again, err := svc.SocialLogin(ctx, domain.SocialLoginRequest{Provider: domain.ProviderGoogle, IDToken: "id-token"})
	if err != nil {
		t.Fatal(err)
	}
	if again.User.ID != res.User.ID {
		t.Fatal("second login created another user")
	}

	if _, err := svc.SocialLogin(ctx, domain.SocialLoginRequest{Provider: "kakao", IDToken: "x"}); !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("err = %v, want ErrUnsupportedProvider", err)
	}

	verifier.profile = &domain.IdentityProfile{Email: "unverified@example.com"}
	if _, err := svc.SocialLogin(ctx, domain.SocialLoginRequest{Provider: domain.ProviderGoogle, IDToken: "x"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	verifier.err = errors.New("bad signature")
	if _, err := svc.SocialLogin(ctx, domain.SocialLoginRequest{Provider: domain.ProviderGoogle, IDToken: "x"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}
