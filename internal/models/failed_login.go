package models

import "time"

// FailedLogin tracks consecutive failed logins for a username.
// Keyed by username rather than user id so it can be written before identity is confirmed.
type FailedLogin struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	IPAddress    string    `db:"ip_address"`
	AttemptCount int       `db:"attempt_count"`
	IsLocked     bool      `db:"is_locked"`
	LastAttempt  time.Time `db:"last_attempt"`
}
