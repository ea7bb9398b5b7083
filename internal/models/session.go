package models

import "time"

// UserSession is one issued login. At most one row per user is active.
type UserSession struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	SessionToken string    `db:"session_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

// TokenPair is returned by a successful login
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AccessToken is returned by a successful refresh
type AccessToken struct {
	AccessToken string `json:"access_token"`
}
