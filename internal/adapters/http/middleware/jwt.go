package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"fleetmon-server/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

const AccessTokenCookie = "access_token"

type TokenValidator interface {
	ValidateToken(token string) (*domain.Claims, error)
}

// JWT accepts an access token from the access_token cookie or a bearer
// header and stores the caller in the request context.
func JWT(auth TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerOrCookie(r)
			if token == "" {
				unauthorized(w, "Unauthorized: no token found")
				return
			}

			claims, err := auth.ValidateToken(token)
			if err != nil || claims.Type != domain.TokenTypeAccess {
				unauthorized(w, "Unauthorized: invalid token")
				return
			}

			user := &domain.User{
				ID:    claims.UserID,
				Email: claims.Email,
				Role:  claims.Role,
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok
}

// WithUser is used by tests that call handlers without the middleware.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func bearerOrCookie(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
