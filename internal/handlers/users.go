package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/sessionauth/internal/models"
	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// UserService defines the interface for user administration
type UserService interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, input models.NewUser) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	FullName    string   `json:"full_name" validate:"required,max=255"`
	Email       string   `json:"email" validate:"required,email,max=255"`
	Username    string   `json:"username" validate:"required,max=255"`
	Password    string   `json:"password" validate:"required,min=6,max=72"`
	Role        string   `json:"role" validate:"omitempty,oneof=user admin"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

func (r *CreateUserRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
}

// ListUsers returns a page of users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := parseQueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Retrieve data success", toResponses(users))
}

// GetUser retrieves a user by ID
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "Retrieve data success", user.ToResponse())
}

// CreateUser creates an account on behalf of an administrator
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeRequest(w, r, &req, false); err != nil {
		pkghttp.WriteBadRequest(w, err.Error(), trxID(r))
		return
	}

	user, err := h.service.CreateUser(r.Context(), models.NewUser{
		FullName:    req.FullName,
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeServiceError(w, r, models.WrapUnexpected("creating user", err))
		return
	}

	writeOK(w, r, "User created successfully", user.ToResponse())
}

// DeleteUser removes a user
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, r, "User deleted successfully", nil)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		pkghttp.WriteBadRequest(w, "Invalid user ID", trxID(r))
		return 0, false
	}
	return id, true
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
