package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/sessionauth/internal/models"
	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
	"github.com/BradenHooton/sessionauth/pkg/trxid"
)

type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
	// TokenContextKey is the key for storing the raw bearer token in context
	TokenContextKey contextKey = "token"
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// AuthMiddleware validates the bearer token and injects its claims and raw value into context
func AuthMiddleware(tv TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trxID := trxid.FromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "Missing authorization header", trxID)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				pkghttp.WriteUnauthorized(w, "Invalid authorization header format", trxID)
				return
			}

			claims, err := tv.ValidateToken(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired token", trxID)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			ctx = context.WithValue(ctx, TokenContextKey, parts[1])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose token does not carry one of roles
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Unauthorized", trxid.FromContext(r.Context()))
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			pkghttp.WriteForbidden(w, "Forbidden: insufficient permissions", trxid.FromContext(r.Context()))
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetTokenFromContext returns the raw bearer token the request was authenticated with
func GetTokenFromContext(r *http.Request) string {
	token, _ := r.Context().Value(TokenContextKey).(string)
	return token
}
