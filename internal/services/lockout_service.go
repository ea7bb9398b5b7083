package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/sessionauth/internal/models"
	pkglogger "github.com/BradenHooton/sessionauth/pkg/logger"
)

// DefaultLockoutThreshold is the number of consecutive failures that locks an account
const DefaultLockoutThreshold = 5

// AccountLockedMessage is reported when a login is refused because of lockout
const AccountLockedMessage = "Account locked due to too many failed login attempts"

// FailedLoginRepository defines the interface for the per-username failure counter
type FailedLoginRepository interface {
	Find(ctx context.Context, username string) (*models.FailedLogin, error)
	Increment(ctx context.Context, username, ip string, at time.Time) (*models.FailedLogin, error)
	Lock(ctx context.Context, username string) error
	Delete(ctx context.Context, username string) error
}

// LockoutService tracks consecutive failed logins and locks accounts that reach the threshold
type LockoutService struct {
	repo      FailedLoginRepository
	threshold int
	logger    *slog.Logger
	now       func() time.Time
}

// NewLockoutService creates a new LockoutService. A threshold below 1 falls back to the default.
func NewLockoutService(repo FailedLoginRepository, threshold int, logger *slog.Logger) *LockoutService {
	if threshold < 1 {
		threshold = DefaultLockoutThreshold
	}
	return &LockoutService{
		repo:      repo,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

func accountLocked() error {
	return models.NewAuthError(models.ErrAccountLocked, http.StatusLocked, AccountLockedMessage)
}

// IsLocked reports whether username is currently locked.
// Storage errors fail open so an outage cannot lock everyone out.
func (s *LockoutService) IsLocked(ctx context.Context, username string) bool {
	row, err := s.repo.Find(ctx, username)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to read lockout state",
				slog.String("username", pkglogger.SanitizedUsername(username)),
				slog.Any("error", err))
		}
		return false
	}
	return row.IsLocked
}

// RecordFailure counts a failed login for username.
// It returns an AccountLocked error once the count reaches the threshold and nil otherwise;
// storage failures are logged and swallowed.
func (s *LockoutService) RecordFailure(ctx context.Context, username, ip string) error {
	row, err := s.repo.Increment(ctx, username, ip, s.now())
	if err != nil {
		s.logger.Error("failed to record login failure",
			slog.String("username", pkglogger.SanitizedUsername(username)),
			slog.Any("error", err))
		return nil
	}

	if row.AttemptCount < s.threshold {
		return nil
	}

	if !row.IsLocked {
		if err := s.repo.Lock(ctx, username); err != nil {
			s.logger.Error("failed to lock account",
				slog.String("username", pkglogger.SanitizedUsername(username)),
				slog.Any("error", err))
		}
	}

	s.logger.Warn("account locked",
		slog.String("username", pkglogger.SanitizedUsername(username)),
		slog.Int("failed_attempts", row.AttemptCount))
	return accountLocked()
}

// Clear deletes the failure counter for username. Clearing a missing counter is not an error.
// The returned error is informational; callers treat clearing as best-effort.
func (s *LockoutService) Clear(ctx context.Context, username string) error {
	if err := s.repo.Delete(ctx, username); err != nil {
		s.logger.Warn("failed to clear login failures",
			slog.String("username", pkglogger.SanitizedUsername(username)),
			slog.Any("error", err))
		return err
	}
	return nil
}
