package http

import (
	"net/http"
	"time"

	"github.com/billfold/accounts/internal/accounts/kvstore"
	"github.com/billfold/accounts/internal/accounts/store"
	"github.com/billfold/accounts/pkg/httpx"
)

// LivezHandler reports process liveness. It must stay dependency-free so a
// wedged database never convinces the orchestrator to kill a healthy process.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"uptime":  time.Since(startTime).String(),
			"version": version,
		})
	}
}

// ReadyzHandler reports whether the service can actually take traffic:
// database reachable and the token store answering. The token store check is
// advisory only; the failover store keeps reset flows alive during a Redis
// outage, so a degraded cache doesn't fail readiness.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	tokens kvstore.TokenStore,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database":    "ok",
			"token_store": "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := tokens.Ping(r.Context()); err != nil {
			checks["token_store"] = "error: " + err.Error()
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		}

		httpx.WriteJSON(w, statusCode, map[string]any{
			"status":  overallStatus,
			"uptime":  time.Since(startTime).String(),
			"version": version,
			"checks":  checks,
		})
	}
}
