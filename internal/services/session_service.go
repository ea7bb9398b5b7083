package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/sessionauth/internal/models"
)

// DefaultSessionExpiry is how long an established session stays active
const DefaultSessionExpiry = 24 * time.Hour

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	FindActiveByUserID(ctx context.Context, userID int64) (*models.UserSession, error)
	Create(ctx context.Context, session *models.UserSession) (*models.UserSession, error)
	Rotate(ctx context.Context, id int64, sessionToken, refreshToken string, expiresAt time.Time) error
	DeactivateByToken(ctx context.Context, token string) (bool, error)
	CountActive(ctx context.Context, userID int64, now time.Time) (int64, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenIssuer signs and verifies access and refresh tokens
type TokenIssuer interface {
	GenerateAccessToken(identity models.Identity) (string, error)
	GenerateRefreshToken(identity models.Identity) (string, error)
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// SessionService keeps at most one active session per user
type SessionService struct {
	repo   SessionRepository
	tx     Transactor
	tokens TokenIssuer
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(repo SessionRepository, tx Transactor, tokens TokenIssuer, expiry time.Duration, logger *slog.Logger) *SessionService {
	if expiry <= 0 {
		expiry = DefaultSessionExpiry
	}
	return &SessionService{
		repo:   repo,
		tx:     tx,
		tokens: tokens,
		expiry: expiry,
		logger: logger,
		now:    time.Now,
	}
}

// Establish issues a token pair for identity and records it as the user's active session.
// An existing active session is rotated in place rather than duplicated.
func (s *SessionService) Establish(ctx context.Context, identity models.Identity) (*models.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.expiry)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		active, err := s.repo.FindActiveByUserID(ctx, identity.UserID)
		switch {
		case err == nil:
			return s.repo.Rotate(ctx, active.ID, accessToken, refreshToken, expiresAt)
		case errors.Is(err, models.ErrNotFound):
			_, err = s.repo.Create(ctx, &models.UserSession{
				UserID:       identity.UserID,
				SessionToken: accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    expiresAt,
				IsActive:     true,
			})
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Invalidate deactivates the session holding sessionToken. An unknown token is not an error.
func (s *SessionService) Invalidate(ctx context.Context, sessionToken string) error {
	matched, err := s.repo.DeactivateByToken(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if !matched {
		s.logger.Debug("logout for unknown or inactive session")
	}
	return nil
}

// CountActive returns the number of active sessions for userID.
// On storage failure it returns 0 together with the ignored error.
func (s *SessionService) CountActive(ctx context.Context, userID int64) (int64, error) {
	count, err := s.repo.CountActive(ctx, userID, s.now())
	if err != nil {
		s.logger.Warn("failed to count active sessions", slog.Int64("user_id", userID), slog.Any("error", err))
		return 0, err
	}
	return count, nil
}

// SweepExpired deactivates every active session past its expiry and reports how many it touched.
// Failures are logged; the returned error is informational.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to sweep expired sessions", slog.Any("error", err))
		return 0, err
	}
	if swept > 0 {
		s.logger.Info("expired sessions deactivated", slog.Int64("count", swept))
	}
	return swept, nil
}
