package middleware

import (
	"net/http"
	"strconv"
	"time"

	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"
)

// Instrument records request counts and latency per route pattern. It must
// wrap the ServeMux directly so the matched pattern is visible afterwards.
func Instrument(tm *telemetry.Metrics, log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)

			tm.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			tm.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "time", elapsed)
		})
	}
}
