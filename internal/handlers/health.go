package handlers

import (
	"context"
	"net/http"

	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthStatus is the data slot of GET /health
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health returns a handler reporting database reachability
func Health(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteJSON(w, pkghttp.Response{
				StatusCode: http.StatusServiceUnavailable,
				Message:    "Service unavailable",
				Data:       HealthStatus{Status: "unhealthy", Database: "down"},
				TrxID:      trxID(r),
			})
			return
		}
		writeOK(w, r, "OK", HealthStatus{Status: "healthy", Database: "up"})
	}
}
