package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/sessionauth/internal/events"
	"github.com/BradenHooton/sessionauth/internal/models"
	pkglogger "github.com/BradenHooton/sessionauth/pkg/logger"
	"github.com/BradenHooton/sessionauth/pkg/trxid"
)

// Transaction id prefixes for user lifecycle events
const (
	createdTrxPrefix = "USR"
	deletedTrxPrefix = "USRDEL"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// UserService is the credential store. It owns user records and emits
// user.created and user.deleted events.
type UserService struct {
	repo      UserRepository
	hasher    PasswordHasher
	publisher events.Publisher
	trx       *trxid.Generator
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, hasher PasswordHasher, publisher events.Publisher, trx *trxid.Generator, logger *slog.Logger) *UserService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		publisher: publisher,
		trx:       trx,
		logger:    logger,
	}
}

// storeErr keeps not-found and conflict distinguishable and reports anything else as store unavailable
func storeErr(err error) error {
	if err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	return user, storeErr(err)
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	return user, storeErr(err)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	return user, storeErr(err)
}

func (s *UserService) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return storeErr(s.repo.UpdatePassword(ctx, id, passwordHash))
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error) {
	user, err := s.repo.UpdateProfile(ctx, id, update)
	return user, storeErr(err)
}

// exists reports whether lookup finds a record
func exists(user *models.User, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// CreateUser trims the identity fields, rejects blank or taken ones, hashes the password and stores
// an active, unverified account. A user.created event is published on success.
func (s *UserService) CreateUser(ctx context.Context, input models.NewUser) (*models.User, error) {
	input = input.Normalized()
	if field := input.BlankField(); field != "" {
		return nil, models.BadRequest(field + " is required")
	}

	taken, err := exists(s.FindByUsername(ctx, input.Username))
	if err != nil {
		return nil, err
	}
	if taken {
		s.logger.Info("username already exists", slog.String("username", pkglogger.SanitizedUsername(input.Username)))
		return nil, models.Conflict("Username already exists")
	}

	taken, err = exists(s.FindByEmail(ctx, input.Email))
	if err != nil {
		return nil, err
	}
	if taken {
		s.logger.Info("email already exists", slog.String("email", pkglogger.SanitizedEmail(input.Email)))
		return nil, models.Conflict("Email already exists")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = models.DefaultRole
	}

	created, err := s.repo.Create(ctx, &models.User{
		FullName:      input.FullName,
		Email:         input.Email,
		Username:      input.Username,
		PasswordHash:  hash,
		IsActive:      true,
		EmailVerified: false,
		Role:          role,
		Permissions:   input.Permissions,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, models.ErrConflict) {
			return nil, models.Conflict("Username or email already exists")
		}
		return nil, storeErr(err)
	}

	s.logger.Info("user created", slog.Int64("user_id", created.ID))
	s.publish(ctx, events.UserCreated, created.ID, createdTrxPrefix)

	return created, nil
}

// ListUsers retrieves a page of users
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.WrapUnexpected("listing users", err)
	}
	return users, nil
}

// GetUser retrieves a user by id
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("User not found")
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.WrapUnexpected("getting user", err)
	}
	return user, nil
}

// DeleteUser removes a user and publishes user.deleted
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NotFound("User not found")
		}
		s.logger.Error("failed to delete user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.WrapUnexpected("deleting user", err)
	}

	s.logger.Info("user deleted", slog.Int64("user_id", id))
	s.publish(ctx, events.UserDeleted, id, deletedTrxPrefix)
	return nil
}

// publish is fire-and-forget: failures are logged and never reach the caller
func (s *UserService) publish(ctx context.Context, event string, userID int64, prefix string) {
	payload := events.UserEvent{ID: userID, TrxID: s.trx.New(prefix)}
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		s.logger.Warn("failed to publish user event",
			slog.String("event", event),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}
