package metricsws

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"

	"github.com/gorilla/websocket"
)

type TokenValidator interface {
	ValidateToken(token string) (*domain.Claims, error)
}

type Handler struct {
	ctx      context.Context
	source   MetricsSource
	auth     TokenValidator
	upgrader websocket.Upgrader
	cbor     *cborCodec
	cfg      config.StreamConfig
	tm       *telemetry.Metrics
	log      logger.Logger
}

// NewHandler serves metric stream upgrades. Sessions close when ctx is done.
func NewHandler(ctx context.Context, source MetricsSource, auth TokenValidator, cfg config.StreamConfig, allowedOrigins []string, tm *telemetry.Metrics, log logger.Logger) (*Handler, error) {
	cc, err := newCBORCodec()
	if err != nil {
		return nil, err
	}

	upgrader := websocket.Upgrader{
		Subprotocols: []string{SubprotocolCBOR},
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			if !slices.Contains(allowedOrigins, origin) {
				log.Warn("ws auth: origin rejected", "origin", origin)
				return false
			}

			return true
		},
	}

	return &Handler{
		ctx:      ctx,
		source:   source,
		auth:     auth,
		upgrader: upgrader,
		cbor:     cc,
		cfg:      cfg,
		tm:       tm,
		log:      log,
	}, nil
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		h.log.Warn("ws auth: missing token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ValidateToken(token)
	if err != nil || claims.Type != domain.TokenTypeAccess {
		h.log.Warn("ws auth: invalid credentials")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws auth: upgrade failed", "error", err)
		return
	}

	var codec Codec = jsonCodec{}
	if conn.Subprotocol() == SubprotocolCBOR {
		codec = h.cbor
	}

	log := h.log.With("user_id", claims.UserID, "remote", r.RemoteAddr)
	NewSession(h.ctx, conn, codec, h.source, h.cfg, h.tm, log).Run()
}

// extractToken looks at the access_token cookie, then a bearer header, then ?token=.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	return r.URL.Query().Get("token")
}
