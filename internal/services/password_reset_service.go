package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/sessionauth/internal/models"
	pkgauth "github.com/BradenHooton/sessionauth/pkg/auth"
)

// DefaultResetTokenExpiry is how long a reset token can be consumed
const DefaultResetTokenExpiry = time.Hour

// PasswordResetRepository defines the interface for reset token persistence
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *models.PasswordReset) error
	FindByTokenForUpdate(ctx context.Context, token string) (*models.PasswordReset, error)
	MarkUsed(ctx context.Context, id int64) error
}

// PasswordUpdater stores a new password hash for a user
type PasswordUpdater interface {
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// PasswordResetService issues single-use reset tokens and consumes them
type PasswordResetService struct {
	repo     PasswordResetRepository
	users    PasswordUpdater
	tx       Transactor
	expiry   time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newToken func() (string, error)
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(repo PasswordResetRepository, users PasswordUpdater, tx Transactor, expiry time.Duration, logger *slog.Logger) *PasswordResetService {
	if expiry <= 0 {
		expiry = DefaultResetTokenExpiry
	}
	return &PasswordResetService{
		repo:     repo,
		users:    users,
		tx:       tx,
		expiry:   expiry,
		logger:   logger,
		now:      time.Now,
		newToken: pkgauth.GenerateResetToken,
	}
}

func invalidResetToken() error {
	return models.NewAuthError(models.ErrTokenInvalid, http.StatusBadRequest, "Invalid or expired reset token")
}

func expiredResetToken() error {
	return models.NewAuthError(models.ErrTokenInvalid, http.StatusBadRequest, "Reset token has expired")
}

// Issue stores a fresh reset token for userID and returns it
func (s *PasswordResetService) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := s.newToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	reset := &models.PasswordReset{
		UserID:     userID,
		ResetToken: token,
		ExpiresAt:  s.now().Add(s.expiry),
	}
	if err := s.repo.Create(ctx, reset); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	return token, nil
}

// Consume applies passwordHash to the owner of token and marks the token used.
// Both writes happen in one transaction; a token succeeds at most once.
// It returns the id of the user whose password changed.
func (s *PasswordResetService) Consume(ctx context.Context, token, passwordHash string) (int64, error) {
	var userID int64

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		reset, err := s.repo.FindByTokenForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return invalidResetToken()
			}
			return err
		}

		if reset.IsUsed {
			return invalidResetToken()
		}
		if reset.Expired(s.now()) {
			return expiredResetToken()
		}

		if err := s.users.UpdatePassword(ctx, reset.UserID, passwordHash); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.NotFound("User not found")
			}
			return err
		}

		if err := s.repo.MarkUsed(ctx, reset.ID); err != nil {
			return err
		}

		userID = reset.UserID
		return nil
	})
	if err != nil {
		return 0, err
	}

	return userID, nil
}
