package models

import "time"

// PasswordReset is a single-use, time-boxed reset token issued on forgot-password
type PasswordReset struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	ResetToken string    `db:"reset_token"`
	ExpiresAt  time.Time `db:"expires_at"`
	IsUsed     bool      `db:"is_used"`
	CreatedAt  time.Time `db:"created_at"`
}

// Expired reports whether the token can no longer be consumed at now
func (p *PasswordReset) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// ForgotPasswordResult carries the generated token back to the caller; delivery is not our concern
type ForgotPasswordResult struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token"`
}
