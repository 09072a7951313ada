// Package http
package http

import (
	"net/http"

	"fleetmon-server/internal/adapters/http/middleware"
	"fleetmon-server/internal/config"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"
)

type RouterDeps struct {
	WsMetrics http.Handler
	Telemetry *telemetry.Metrics
	Tokens    middleware.TokenValidator
	Log       logger.Logger

	Health  *HealthHandler
	Auth    *AuthHandler
	Server  *ServerHandler
	Metrics *MetricsHandler
	Alert   *AlertHandler
	Logs    *LogHandler
}

func NewRouter(cfg *config.Config, deps *RouterDeps) http.Handler {
	mux := http.NewServeMux()

	globalMw := middleware.New()
	globalMw.Use(middleware.Instrument(deps.Telemetry, deps.Log))
	globalMw.Use(middleware.CORS(cfg.AllowedOrigins))

	userStack := middleware.New()
	userStack.Use(middleware.JWT(deps.Tokens))

	// HEALTH
	mux.HandleFunc("GET /health", deps.Health.Health)
	mux.Handle("GET /metrics", deps.Telemetry.Handler())

	// WEBSOCKET
	mux.Handle("GET /ws/metrics", deps.WsMetrics)

	// AUTH
	mux.HandleFunc("POST /auth/register", deps.Auth.Register)
	mux.HandleFunc("POST /auth/login", deps.Auth.Login)
	mux.HandleFunc("POST /auth/social-login", deps.Auth.SocialLogin)
	mux.HandleFunc("POST /auth/refresh", deps.Auth.Refresh)
	mux.Handle("POST /auth/logout", userStack.ThenFunc(deps.Auth.Logout))
	mux.Handle("GET /auth/me", userStack.ThenFunc(deps.Auth.Me))

	// SERVERS
	mux.Handle("GET /servers", userStack.ThenFunc(deps.Server.Index))
	mux.Handle("POST /servers", userStack.ThenFunc(deps.Server.Store))
	mux.Handle("POST /servers/test-connection", userStack.ThenFunc(deps.Server.TestConnection))
	mux.Handle("GET /servers/{id}", userStack.ThenFunc(deps.Server.Show))
	mux.Handle("PUT /servers/{id}", userStack.ThenFunc(deps.Server.Update))
	mux.Handle("DELETE /servers/{id}", userStack.ThenFunc(deps.Server.Destroy))
	mux.Handle("PUT /servers/{id}/status", userStack.ThenFunc(deps.Server.UpdateStatus))

	// MONITORING
	mux.Handle("GET /monitoring/servers", userStack.ThenFunc(deps.Metrics.Monitored))
	mux.Handle("POST /servers/{id}/monitoring/start", userStack.ThenFunc(deps.Metrics.Start))
	mux.Handle("POST /servers/{id}/monitoring/stop", userStack.ThenFunc(deps.Metrics.Stop))
	mux.Handle("GET /servers/{id}/metrics/current", userStack.ThenFunc(deps.Metrics.Current))
	mux.Handle("GET /servers/{id}/metrics/history", userStack.ThenFunc(deps.Metrics.History))
	mux.Handle("GET /servers/{id}/processes", userStack.ThenFunc(deps.Metrics.Processes))

	// ALERTS
	mux.Handle("GET /alerts", userStack.ThenFunc(deps.Alert.Index))
	mux.Handle("POST /alerts/{id}/acknowledge", userStack.ThenFunc(deps.Alert.Acknowledge))

	// LOGS
	mux.Handle("POST /logs", userStack.ThenFunc(deps.Logs.Store))
	mux.Handle("GET /logs", userStack.ThenFunc(deps.Logs.Index))
	mux.Handle("DELETE /logs", userStack.ThenFunc(deps.Logs.Destroy))
	mux.Handle("GET /logs/{id}", userStack.ThenFunc(deps.Logs.Show))

	return globalMw.Then(mux)
}
