package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/sessionauth/internal/auth"
	"github.com/BradenHooton/sessionauth/internal/models"
	"github.com/BradenHooton/sessionauth/internal/services"
	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password, ip string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID int64, sessionToken string) error
	Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error)
	ForgotPassword(ctx context.Context, email string) (*models.ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.User, error)
	ActiveSessionCount(ctx context.Context, userID int64) int64
	CleanupExpiredSessions(ctx context.Context) int64
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration.
// Self-registration can only create plain users.
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user"`
}

func (r *RegisterRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordRequest represents the request body for forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// ResetPasswordRequest represents the request body for reset-password
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// ChangePasswordRequest represents the request body for change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// UpdateProfileRequest carries the only fields a user may change on their profile
type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Username *string `json:"username" validate:"omitempty,min=1,max=255"`
}

func (r *UpdateProfileRequest) normalize() {
	for _, field := range []*string{r.FullName, r.Email, r.Username} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}

// SessionCountResponse is returned by GET /auth/sessions/count
type SessionCountResponse struct {
	ActiveSessions int64 `json:"active_sessions"`
}

// CleanupResponse is returned by POST /auth/sessions/cleanup
type CleanupResponse struct {
	Deactivated int64 `json:"deactivated"`
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeRequest(w, r, &req, false); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "User registered successfully!", user.ToResponse())
}

// Login handles username/password login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeRequest(w, r, &req, false); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	pair, err := h.service.Login(r.Context(), req.Username, req.Password, ip)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Login successfully!", pair)
}

// Refresh exchanges a refresh token for a new access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := decodeRequest(w, r, &req, false); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	token, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Token refreshed successfully!", token)
}

// Logout deactivates the session the bearer token belongs to
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), userID, auth.GetTokenFromContext(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Logged out successfully", nil)
}

// ForgotPassword issues a reset token for an email address
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeRequest(w, r, &req, false); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	result, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, result.Message, result)
}

// ResetPassword consumes a reset token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeRequest(w, r, &req, false); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Password reset successfully", nil)
}

// ChangePassword changes the caller's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := decodeRequest(w, r, &req, false); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Password changed successfully", nil)
}

// GetProfile returns the caller's user record
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Retrieve data success", user.ToResponse())
}

// UpdateProfile changes full name, email or username of the caller.
// Any other field in the body is rejected.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := decodeRequest(w, r, &req, true); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, models.ProfileUpdate{
		FullName: req.FullName,
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Profile updated successfully", user.ToResponse())
}

// SessionCount reports how many active sessions the caller has
func (h *AuthHandler) SessionCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	count := h.service.ActiveSessionCount(r.Context(), userID)
	writeOK(w, r, "Retrieve data success", SessionCountResponse{ActiveSessions: count})
}

// CleanupSessions deactivates expired sessions on demand
func (h *AuthHandler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	swept := h.service.CleanupExpiredSessions(r.Context())
	writeOK(w, r, "Sessions cleaned up", CleanupResponse{Deactivated: swept})
}

// callerID returns the user id of the authenticated caller, writing a 401 when there is none
func (h *AuthHandler) callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized", trxID(r))
		return 0, false
	}

	id, err := claims.UserID()
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized", trxID(r))
		return 0, false
	}
	return id, true
}
