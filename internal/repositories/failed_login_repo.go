package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/sessionauth/internal/database"
	"github.com/BradenHooton/sessionauth/internal/models"
)

// FailedLoginRepository persists the per-username failure counter
type FailedLoginRepository struct {
	db *database.DB
}

func NewFailedLoginRepository(db *database.DB) *FailedLoginRepository {
	return &FailedLoginRepository{db: db}
}

// Find returns the counter for username, or models.ErrNotFound if none exists
func (r *FailedLoginRepository) Find(ctx context.Context, username string) (*models.FailedLogin, error) {
	query := `
		SELECT id, username, COALESCE(ip_address, ''), attempt_count, is_locked, last_attempt
		FROM m_failed_logins WHERE username = $1
	`

	var f models.FailedLogin
	err := r.db.Querier(ctx).QueryRow(ctx, query, username).
		Scan(&f.ID, &f.Username, &f.IPAddress, &f.AttemptCount, &f.IsLocked, &f.LastAttempt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &f, nil
}

// Increment creates the counter at 1 or adds one to it atomically, and returns the result
func (r *FailedLoginRepository) Increment(ctx context.Context, username, ip string, at time.Time) (*models.FailedLogin, error) {
	query := `
		INSERT INTO m_failed_logins (username, ip_address, attempt_count, is_locked, last_attempt)
		VALUES ($1, NULLIF($2, ''), 1, FALSE, $3)
		ON CONFLICT (username) DO UPDATE
		SET attempt_count = m_failed_logins.attempt_count + 1,
		    ip_address = COALESCE(EXCLUDED.ip_address, m_failed_logins.ip_address),
		    last_attempt = EXCLUDED.last_attempt
		RETURNING id, username, COALESCE(ip_address, ''), attempt_count, is_locked, last_attempt
	`

	var f models.FailedLogin
	err := r.db.Querier(ctx).QueryRow(ctx, query, username, ip, at).
		Scan(&f.ID, &f.Username, &f.IPAddress, &f.AttemptCount, &f.IsLocked, &f.LastAttempt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &f, nil
}

func (r *FailedLoginRepository) Lock(ctx context.Context, username string) error {
	query := `UPDATE m_failed_logins SET is_locked = TRUE WHERE username = $1`

	_, err := r.db.Querier(ctx).Exec(ctx, query, username)
	return database.MapPostgresError(err)
}

// Delete removes the counter. Deleting a missing counter is not an error.
func (r *FailedLoginRepository) Delete(ctx context.Context, username string) error {
	query := `DELETE FROM m_failed_logins WHERE username = $1`

	_, err := r.db.Querier(ctx).Exec(ctx, query, username)
	return database.MapPostgresError(err)
}
