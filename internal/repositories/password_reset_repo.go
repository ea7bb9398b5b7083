package repositories

import (
	"context"

	"github.com/BradenHooton/sessionauth/internal/database"
	"github.com/BradenHooton/sessionauth/internal/models"
)

// PasswordResetRepository persists m_password_resets rows
type PasswordResetRepository struct {
	db *database.DB
}

func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) error {
	query := `
		INSERT INTO m_password_resets (user_id, reset_token, expires_at, is_used)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, created_at
	`

	err := r.db.Querier(ctx).QueryRow(ctx, query, reset.UserID, reset.ResetToken, reset.ExpiresAt).
		Scan(&reset.ID, &reset.CreatedAt)
	return database.MapPostgresError(err)
}

// FindByTokenForUpdate loads a reset by token and locks it for the enclosing transaction
func (r *PasswordResetRepository) FindByTokenForUpdate(ctx context.Context, token string) (*models.PasswordReset, error) {
	query := `
		SELECT id, user_id, reset_token, expires_at, is_used, created_at
		FROM m_password_resets
		WHERE reset_token = $1
		FOR UPDATE
	`

	var p models.PasswordReset
	err := r.db.Querier(ctx).QueryRow(ctx, query, token).
		Scan(&p.ID, &p.UserID, &p.ResetToken, &p.ExpiresAt, &p.IsUsed, &p.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

func (r *PasswordResetRepository) MarkUsed(ctx context.Context, id int64) error {
	query := `UPDATE m_password_resets SET is_used = TRUE WHERE id = $1`

	result, err := r.db.Querier(ctx).Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
