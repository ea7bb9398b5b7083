package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/sessionauth/internal/database"
	"github.com/BradenHooton/sessionauth/internal/models"
)

const sessionColumns = `id, user_id, session_token, refresh_token, expires_at, is_active, created_at`

// SessionRepository persists m_user_sessions rows
type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSessionRow(scanner rowScanner) (*models.UserSession, error) {
	var s models.UserSession
	err := scanner.Scan(&s.ID, &s.UserID, &s.SessionToken, &s.RefreshToken, &s.ExpiresAt, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

// FindActiveByUserID returns the user's active session, locking the row for the
// enclosing transaction. No active session is models.ErrNotFound.
func (r *SessionRepository) FindActiveByUserID(ctx context.Context, userID int64) (*models.UserSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM m_user_sessions
		WHERE user_id = $1 AND is_active
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`
	return scanSessionRow(r.db.Querier(ctx).QueryRow(ctx, query, userID))
}

func (r *SessionRepository) Create(ctx context.Context, session *models.UserSession) (*models.UserSession, error) {
	query := `
		INSERT INTO m_user_sessions (user_id, session_token, refresh_token, expires_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING ` + sessionColumns

	return scanSessionRow(r.db.Querier(ctx).QueryRow(ctx, query,
		session.UserID, session.SessionToken, session.RefreshToken, session.ExpiresAt,
	))
}

// Rotate overwrites the tokens and expiry of an existing session and reactivates it
func (r *SessionRepository) Rotate(ctx context.Context, id int64, sessionToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE m_user_sessions
		SET session_token = $1, refresh_token = $2, expires_at = $3, is_active = TRUE
		WHERE id = $4
	`

	result, err := r.db.Querier(ctx).Exec(ctx, query, sessionToken, refreshToken, expiresAt, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeactivateByToken marks the session whose access token is token inactive.
// It reports whether a row matched.
func (r *SessionRepository) DeactivateByToken(ctx context.Context, token string) (bool, error) {
	query := `UPDATE m_user_sessions SET is_active = FALSE WHERE session_token = $1 AND is_active`

	result, err := r.db.Querier(ctx).Exec(ctx, query, token)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return result.RowsAffected() > 0, nil
}

// CountActive counts the user's active, unexpired sessions
func (r *SessionRepository) CountActive(ctx context.Context, userID int64, now time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM m_user_sessions WHERE user_id = $1 AND is_active AND expires_at > $2`

	var count int64
	if err := r.db.Querier(ctx).QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// DeactivateExpired marks every active session past its expiry inactive
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE m_user_sessions SET is_active = FALSE WHERE is_active AND expires_at < $1`

	result, err := r.db.Querier(ctx).Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
