package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/sessionauth/internal/auth"
	"github.com/BradenHooton/sessionauth/internal/models"
	"github.com/BradenHooton/sessionauth/internal/services"
	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
	"github.com/BradenHooton/sessionauth/pkg/trxid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTrxID = "TIDDEV01012026000000ABCDE"

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, input services.RegisterInput) (*models.User, error)
	LoginFunc          func(ctx context.Context, username, password, ip string) (*models.TokenPair, error)
	LogoutFunc         func(ctx context.Context, userID int64, sessionToken string) error
	RefreshFunc        func(ctx context.Context, refreshToken string) (*models.AccessToken, error)
	ForgotPasswordFunc func(ctx context.Context, email string) (*models.ForgotPasswordResult, error)
	ResetPasswordFunc  func(ctx context.Context, resetToken, newPassword string) error
	ChangePasswordFunc func(ctx context.Context, userID int64, currentPassword, newPassword string) error
	GetProfileFunc     func(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfileFunc  func(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.User, error)
	SessionCount       int64
	Swept              int64
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	return m.RegisterFunc(ctx, input)
}

func (m *MockAuthService) Login(ctx context.Context, username, password, ip string) (*models.TokenPair, error) {
	return m.LoginFunc(ctx, username, password, ip)
}

func (m *MockAuthService) Logout(ctx context.Context, userID int64, sessionToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, userID, sessionToken)
	}
	return nil
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error) {
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) (*models.ForgotPasswordResult, error) {
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return m.ResetPasswordFunc(ctx, resetToken, newPassword)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
}

func (m *MockAuthService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	return m.GetProfileFunc(ctx, userID)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.User, error) {
	return m.UpdateProfileFunc(ctx, userID, update)
}

func (m *MockAuthService) ActiveSessionCount(context.Context, int64) int64 { return m.SessionCount }

func (m *MockAuthService) CleanupExpiredSessions(context.Context) int64 { return m.Swept }

// MockUserService implements UserService for testing
type MockUserService struct {
	ListUsersFunc  func(ctx context.Context, limit, offset int) ([]*models.User, error)
	GetUserFunc    func(ctx context.Context, id int64) (*models.User, error)
	CreateUserFunc func(ctx context.Context, input models.NewUser) (*models.User, error)
	DeleteUserFunc func(ctx context.Context, id int64) error
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return m.ListUsersFunc(ctx, limit, offset)
}

func (m *MockUserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return m.GetUserFunc(ctx, id)
}

func (m *MockUserService) CreateUser(ctx context.Context, input models.NewUser) (*models.User, error) {
	return m.CreateUserFunc(ctx, input)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id int64) error {
	return m.DeleteUserFunc(ctx, id)
}

// newTestRequest creates an HTTP request with a JSON body and a transaction id in context
func newTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(trxid.NewContext(req.Context(), testTrxID))
}

// withCaller adds the claims AuthMiddleware would inject
func withCaller(req *http.Request, userID, token string) *http.Request {
	claims := &models.TokenClaims{Username: "johndoe", Role: "user"}
	claims.Subject = userID
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	ctx = context.WithValue(ctx, auth.TokenContextKey, token)
	return req.WithContext(ctx)
}

// decodeEnvelope checks the status and envelope and decodes data into target when non-nil
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, status int, target any) pkghttp.Response {
	t.Helper()
	assert.Equal(t, status, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var raw struct {
		pkghttp.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, status, raw.StatusCode)
	assert.Equal(t, testTrxID, raw.TrxID)

	if target != nil {
		require.NoError(t, json.Unmarshal(raw.Data, target))
	}
	return raw.Response
}

func testUser() *models.User {
	return &models.User{
		ID:           1,
		FullName:     "John Doe",
		Email:        "john@x.com",
		Username:     "johndoe",
		PasswordHash: "$2a$10$secret",
		IsActive:     true,
		Role:         "user",
	}
}
