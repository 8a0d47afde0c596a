// health.go - Liveness and readiness endpoints.
package server

import (
	"context"
	"net/http"
	"time"
)

// healthHandler reports process liveness and build identity.
func (cfg Config) healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": cfg.Build.Version,
			"commit":  cfg.Build.Commit,
		})
	})
}

// readyHandler reports whether the service can actually serve: the
// database must answer a ping.
func (cfg Config) readyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK

		if cfg.DB == nil {
			checks["database"] = "not configured"
			status = http.StatusServiceUnavailable
		} else if err := cfg.DB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}

		if cfg.Blobs == nil {
			checks["storage"] = "not configured"
			status = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}

		body := map[string]any{"checks": checks}
		if status == http.StatusOK {
			body["status"] = "ok"
		} else {
			body["status"] = "unavailable"
		}
		writeJSON(w, status, body)
	})
}
