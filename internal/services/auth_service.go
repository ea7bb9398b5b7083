package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/sessionauth/internal/auth"
	"github.com/BradenHooton/sessionauth/internal/models"
	pkglogger "github.com/BradenHooton/sessionauth/pkg/logger"
)

// InvalidCredentialMessage is returned for an unknown username or a wrong password alike
const InvalidCredentialMessage = "Please check your account or password!"

// CredentialStore is the user persistence the auth flows rely on
type CredentialStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, input models.NewUser) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error)
}

// LockoutTracker counts failed logins per username
type LockoutTracker interface {
	IsLocked(ctx context.Context, username string) bool
	RecordFailure(ctx context.Context, username, ip string) error
	Clear(ctx context.Context, username string) error
}

// SessionLedger keeps the single active session per user
type SessionLedger interface {
	Establish(ctx context.Context, identity models.Identity) (*models.TokenPair, error)
	Invalidate(ctx context.Context, sessionToken string) error
	CountActive(ctx context.Context, userID int64) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// ResetLedger issues and consumes password reset tokens
type ResetLedger interface {
	Issue(ctx context.Context, userID int64) (string, error)
	Consume(ctx context.Context, token, passwordHash string) (int64, error)
}

// AccessTokenIssuer re-signs access tokens from a verified refresh token
type AccessTokenIssuer interface {
	GenerateAccessToken(identity models.Identity) (string, error)
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// AuthDependencies are the collaborators of AuthService
type AuthDependencies struct {
	Users       CredentialStore
	Lockout     LockoutTracker
	Sessions    SessionLedger
	Resets      ResetLedger
	Tokens      AccessTokenIssuer
	Hasher      PasswordHasher
	Timing      *auth.TimingDelay
	Logger      *slog.Logger
	AuditLogger *pkglogger.AuditLogger
}

// AuthService composes the credential store, lockout tracker, session and reset
// ledgers into the authentication flows. Every failure it returns is an *models.AuthError.
type AuthService struct {
	users       CredentialStore
	lockout     LockoutTracker
	sessions    SessionLedger
	resets      ResetLedger
	tokens      AccessTokenIssuer
	hasher      PasswordHasher
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:       deps.Users,
		lockout:     deps.Lockout,
		sessions:    deps.Sessions,
		resets:      deps.Resets,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		timing:      deps.Timing,
		logger:      deps.Logger,
		auditLogger: deps.AuditLogger,
	}
}

// RegisterInput is the payload of a registration
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
	Role     string
}

func invalidCredential() error {
	return models.NewAuthError(models.ErrInvalidCredential, http.StatusNotFound, InvalidCredentialMessage)
}

func invalidRefreshToken() error {
	return models.NewAuthError(models.ErrTokenInvalid, http.StatusUnauthorized, "Invalid or expired refresh token")
}

// Register creates an active, unverified account. Identity fields are trimmed and must not be blank.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	user, err := s.users.CreateUser(ctx, models.NewUser{
		FullName: input.FullName,
		Email:    input.Email,
		Username: input.Username,
		Password: input.Password,
		Role:     input.Role,
	})
	if err != nil {
		if models.StatusOf(err) >= http.StatusInternalServerError {
			s.logger.Error("failed to register user", slog.Any("error", err))
		}
		return nil, models.WrapUnexpected("registering user", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventRegister, user.ID, map[string]string{"role": user.Role})
	return user, nil
}

// Login verifies username and password and establishes a session.
// A locked account is refused before its password is checked.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (pair *models.TokenPair, err error) {
	start := time.Now()
	defer func() { s.timing.WaitFrom(start, err == nil) }()

	username = strings.TrimSpace(username)

	if s.lockout.IsLocked(ctx, username) {
		s.logger.Info("login refused: account locked", slog.String("username", pkglogger.SanitizedUsername(username)))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			Username:      username,
			IPAddress:     ip,
			FailureReason: "account_locked",
		})
		return nil, accountLocked()
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up user for login", slog.Any("error", err))
		return nil, models.WrapUnexpected("validating user", err)
	}

	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, username, ip)
	}

	// best-effort; the counter is harmless if it survives
	_ = s.lockout.Clear(ctx, username)

	pair, err = s.sessions.Establish(ctx, user.Identity())
	if err != nil {
		s.logger.Error("failed to establish session", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.WrapUnexpected("generating token", err)
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: ip,
		Success:   true,
	})
	return pair, nil
}

// loginFailed records the failure and picks the error reported to the caller
func (s *AuthService) loginFailed(ctx context.Context, username, ip string) error {
	if err := s.lockout.RecordFailure(ctx, username, ip); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventAccountLocked,
			Username:      username,
			IPAddress:     ip,
			FailureReason: "threshold_reached",
		})
		return err
	}

	s.logger.Info("login failed: invalid credentials")
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginFailed,
		Username:      username,
		IPAddress:     ip,
		FailureReason: "invalid_credentials",
	})
	return invalidCredential()
}

// Logout deactivates the session for sessionToken. Unknown tokens succeed.
// Sessions are keyed by the access token issued at login; an access token
// minted by Refresh matches no session, so clients log out with the login token.
func (s *AuthService) Logout(ctx context.Context, userID int64, sessionToken string) error {
	if err := s.sessions.Invalidate(ctx, sessionToken); err != nil {
		s.logger.Error("failed to log out", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.WrapUnexpected("logging out", err)
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		UserID:    userID,
		Success:   true,
	})
	return nil
}

// Refresh verifies refreshToken and signs a new access token with the same claims.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error) {
	claims, err := s.tokens.ValidateToken(strings.TrimSpace(refreshToken))
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, invalidRefreshToken()
	}

	identity, err := claims.Identity()
	if err != nil {
		return nil, invalidRefreshToken()
	}

	accessToken, err := s.tokens.GenerateAccessToken(identity)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		return nil, models.WrapUnexpected("refreshing token", err)
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventTokenRefreshed,
		UserID:    identity.UserID,
		Success:   true,
	})
	return &models.AccessToken{AccessToken: accessToken}, nil
}

// ForgotPassword issues a reset token for the account registered under email.
// Delivering the token is left to the caller.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*models.ForgotPasswordResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("forgot password for unknown email", slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil, models.NotFound("Email not found")
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return nil, models.WrapUnexpected("processing forgot password", err)
	}

	token, err := s.resets.Issue(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.WrapUnexpected("processing forgot password", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventResetRequested, user.ID, nil)
	return &models.ForgotPasswordResult{Message: "Password reset token generated", ResetToken: token}, nil
}

// ResetPassword consumes resetToken and sets newPassword on its owner.
// A successful reset also lifts any lockout on the account.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return models.WrapUnexpected("resetting password", err)
	}

	userID, err := s.resets.Consume(ctx, resetToken, hash)
	if err != nil {
		if !errors.Is(err, models.ErrTokenInvalid) {
			s.logger.Error("failed to reset password", slog.Any("error", err))
		}
		return models.WrapUnexpected("resetting password", err)
	}

	if user, err := s.users.FindByID(ctx, userID); err == nil {
		_ = s.lockout.Clear(ctx, user.Username)
	} else {
		s.logger.Warn("password reset without lockout clear", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	s.auditLogger.LogAccountAction(pkglogger.EventPasswordReset, userID, nil)
	return nil
}

// ChangePassword replaces the password of userID after checking currentPassword
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NotFound("User not found")
		}
		s.logger.Error("failed to look up user for password change", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.WrapUnexpected("changing password", err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordChange,
			UserID:        userID,
			FailureReason: "wrong_current_password",
		})
		return models.BadRequest("Current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return models.WrapUnexpected("changing password", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NotFound("User not found")
		}
		s.logger.Error("failed to update password", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.WrapUnexpected("changing password", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventPasswordChange, userID, nil)
	return nil
}

// GetProfile returns the user record for userID
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("User not found")
		}
		s.logger.Error("failed to get profile", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.WrapUnexpected("getting profile", err)
	}
	return user, nil
}

// UpdateProfile applies update to userID. Only full name, email and username can change.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.User, error) {
	if update.IsEmpty() {
		return nil, models.BadRequest("No profile fields to update")
	}
	update = update.Normalized()
	if field := update.BlankField(); field != "" {
		return nil, models.BadRequest(field + " cannot be empty")
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.NotFound("User not found")
		case errors.Is(err, models.ErrConflict):
			return nil, models.Conflict("Username or email already exists")
		}
		s.logger.Error("failed to update profile", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.WrapUnexpected("updating profile", err)
	}

	s.auditLogger.LogAccountAction(pkglogger.EventProfileUpdated, userID, nil)
	return user, nil
}

// ActiveSessionCount returns the number of active sessions for userID, or 0 when it cannot be read
func (s *AuthService) ActiveSessionCount(ctx context.Context, userID int64) int64 {
	count, _ := s.sessions.CountActive(ctx, userID)
	return count
}

// CleanupExpiredSessions deactivates expired sessions. It never fails.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) int64 {
	swept, _ := s.sessions.SweepExpired(ctx)
	return swept
}
