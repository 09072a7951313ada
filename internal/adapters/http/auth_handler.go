package http

import (
	"errors"
	"net/http"
	"time"

	"fleetmon-server/internal/adapters/http/middleware"
	"fleetmon-server/internal/adapters/http/request"
	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
)

const refreshTokenCookie = "refresh_token"

type AuthHandler struct {
	svc domain.AuthService
	cfg *config.Config
}

func NewAuthHandler(svc domain.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		svc: svc,
		cfg: cfg,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			JSONError(w, http.StatusConflict, "Email already registered")
			return
		}

		JSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	h.setSession(w, res)

	JSONSuccess(w, http.StatusCreated, APIResponse{
		Message: "User created successfully.",
		Data:    res,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			JSONError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		JSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	h.setSession(w, res)

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    res,
	})
}

func (h *AuthHandler) SocialLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.SocialLoginRequest
	if err := request.Decode(r, &req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return
	}

	res, err := h.svc.SocialLogin(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedProvider):
			JSONError(w, http.StatusBadRequest, "Unsupported login provider")
		case errors.Is(err, domain.ErrInvalidCredentials):
			JSONError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			JSONError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	h.setSession(w, res)

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    res,
	})
}

// Refresh takes the refresh token from the body, falling back to the cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if r.ContentLength != 0 {
		if err := request.Decode(r, &req); err != nil {
			JSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}

	if req.RefreshToken == "" {
		JSONError(w, http.StatusUnauthorized, "Refresh token is required")
		return
	}

	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			JSONError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}

		JSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	h.setSession(w, res)

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    res,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	JSONSuccess(w, http.StatusNoContent, APIResponse{})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		JSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.svc.Me(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			JSONError(w, http.StatusNotFound, "User not found")
			return
		}

		JSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    user,
	})
}

func (h *AuthHandler) setSession(w http.ResponseWriter, res *domain.AuthResponse) {
	now := time.Now()

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    res.AccessToken,
		Path:     "/",
		Expires:  now.Add(h.cfg.JWTExpiry),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    res.RefreshToken,
		Path:     "/",
		Expires:  now.Add(h.cfg.JWTRefreshExpiry),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
