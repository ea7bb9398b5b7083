package models

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the claim set embedded in access and refresh tokens
type Identity struct {
	UserID      int64
	Username    string
	Role        string
	Permissions []string
}

// TokenClaims is the signed payload: { username, sub, role, permissions }.
// Access and refresh tokens share this shape and differ only in lifetime.
type TokenClaims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// UserID parses the numeric user id carried in the subject claim
func (c *TokenClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}

// Identity rebuilds the identity the token was issued for
func (c *TokenClaims) Identity() (Identity, error) {
	id, err := c.UserID()
	if err != nil {
		return Identity{}, err
	}
	permissions := c.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return Identity{
		UserID:      id,
		Username:    c.Username,
		Role:        c.Role,
		Permissions: permissions,
	}, nil
}
