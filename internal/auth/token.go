package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/sessionauth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager signs and verifies access and refresh tokens.
// Both kinds carry the same claims and differ only in their TTL.
type TokenManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		now:                time.Now,
	}
}

// Issue signs a token for identity that expires after ttl
func (tm *TokenManager) Issue(identity models.Identity, ttl time.Duration) (string, error) {
	now := tm.now()

	claims := &models.TokenClaims{
		Username:    identity.Username,
		Role:        identity.Role,
		Permissions: identity.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps tokens minted in the same second distinct
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(identity.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if claims.Permissions == nil {
		claims.Permissions = []string{}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// GenerateAccessToken creates a short-lived access token
func (tm *TokenManager) GenerateAccessToken(identity models.Identity) (string, error) {
	return tm.Issue(identity, tm.accessTokenExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token
func (tm *TokenManager) GenerateRefreshToken(identity models.Identity) (string, error) {
	return tm.Issue(identity, tm.refreshTokenExpiry)
}

// ValidateToken verifies a token and returns its claims.
// Malformed, tampered and expired tokens all yield models.ErrTokenInvalid.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, errors.Join(models.ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}

	if _, err := claims.UserID(); err != nil {
		return nil, errors.Join(models.ErrTokenInvalid, err)
	}

	return claims, nil
}
