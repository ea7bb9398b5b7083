package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
	"github.com/BradenHooton/sessionauth/pkg/trxid"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultAuthRateLimit returns the limit applied to credential endpoints (10 requests per minute)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.Requests < 1 || config.Window <= 0 {
		config = DefaultAuthRateLimit()
	}
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests, please try again later", trxid.FromContext(r.Context()))
		}),
	)
}
