package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/sessionauth/internal/auth"
	"github.com/BradenHooton/sessionauth/internal/models"
	pkgauth "github.com/BradenHooton/sessionauth/pkg/auth"
	pkglogger "github.com/BradenHooton/sessionauth/pkg/logger"
	"github.com/BradenHooton/sessionauth/pkg/trxid"
	"golang.org/x/crypto/bcrypt"
)

var errStorage = errors.New("connection refused")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTx serialises transactions so check-then-act sequences in tests behave atomically
type fakeTx struct {
	mu sync.Mutex
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*models.User{}}
}

func (r *fakeUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if offset >= len(users) {
		return []*models.User{}, nil
	}
	users = users[offset:]
	if limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, models.ErrConflict
		}
	}
	r.nextID++
	cp := *user
	cp.ID = r.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id int64, update models.ProfileUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	for _, other := range r.users {
		if other.ID == id {
			continue
		}
		if (update.Username != nil && other.Username == *update.Username) ||
			(update.Email != nil && other.Email == *update.Email) {
			return nil, models.ErrConflict
		}
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeSessionRepo is an in-memory SessionRepository
type fakeSessionRepo struct {
	mu       sync.Mutex
	nextID   int64
	sessions []*models.UserSession
	err      error
}

func (r *fakeSessionRepo) FindActiveByUserID(_ context.Context, userID int64) (*models.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeSessionRepo) Create(_ context.Context, session *models.UserSession) (*models.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.nextID++
	cp := *session
	cp.ID = r.nextID
	cp.IsActive = true
	cp.CreatedAt = time.Now()
	r.sessions = append(r.sessions, &cp)
	out := cp
	return &out, nil
}

func (r *fakeSessionRepo) Rotate(_ context.Context, id int64, sessionToken, refreshToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, s := range r.sessions {
		if s.ID == id {
			s.SessionToken, s.RefreshToken, s.ExpiresAt, s.IsActive = sessionToken, refreshToken, expiresAt, true
			return nil
		}
	}
	return models.ErrNotFound
}

func (r *fakeSessionRepo) DeactivateByToken(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	for _, s := range r.sessions {
		if s.SessionToken == token && s.IsActive {
			s.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) CountActive(_ context.Context, userID int64, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive && s.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for _, s := range r.sessions {
		if s.IsActive && s.ExpiresAt.Before(now) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

// fakeResetRepo is an in-memory PasswordResetRepository
type fakeResetRepo struct {
	mu     sync.Mutex
	nextID int64
	resets map[string]*models.PasswordReset
	err    error
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{resets: map[string]*models.PasswordReset{}}
}

func (r *fakeResetRepo) Create(_ context.Context, reset *models.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.resets[reset.ResetToken]; ok {
		return models.ErrConflict
	}
	r.nextID++
	reset.ID = r.nextID
	reset.CreatedAt = time.Now()
	cp := *reset
	r.resets[reset.ResetToken] = &cp
	return nil
}

func (r *fakeResetRepo) FindByTokenForUpdate(_ context.Context, token string) (*models.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	reset, ok := r.resets[token]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *reset
	return &cp, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, reset := range r.resets {
		if reset.ID == id {
			reset.IsUsed = true
			return nil
		}
	}
	return models.ErrNotFound
}

// fakeFailedLoginRepo is an in-memory FailedLoginRepository
type fakeFailedLoginRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.FailedLogin
	err     error
	lockErr error
}

func newFakeFailedLoginRepo() *fakeFailedLoginRepo {
	return &fakeFailedLoginRepo{rows: map[string]*models.FailedLogin{}}
}

func (r *fakeFailedLoginRepo) Find(_ context.Context, username string) (*models.FailedLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	row, ok := r.rows[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *fakeFailedLoginRepo) Increment(_ context.Context, username, ip string, at time.Time) (*models.FailedLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	row, ok := r.rows[username]
	if !ok {
		row = &models.FailedLogin{ID: int64(len(r.rows) + 1), Username: username}
		r.rows[username] = row
	}
	row.AttemptCount++
	row.IPAddress = ip
	row.LastAttempt = at
	cp := *row
	return &cp, nil
}

func (r *fakeFailedLoginRepo) Lock(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lockErr != nil {
		return r.lockErr
	}
	if row, ok := r.rows[username]; ok {
		row.IsLocked = true
	}
	return nil
}

func (r *fakeFailedLoginRepo) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.rows, username)
	return nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// authFixture wires real services over in-memory storage
type authFixture struct {
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	resets    *fakeResetRepo
	failures  *fakeFailedLoginRepo
	publisher *recordingPublisher
	tokens    *auth.TokenManager

	userService   *UserService
	sessionLedger *SessionService
	authService   *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:     newFakeUserRepo(),
		sessions:  &fakeSessionRepo{},
		resets:    newFakeResetRepo(),
		failures:  newFakeFailedLoginRepo(),
		publisher: &recordingPublisher{},
		tokens:    auth.NewTokenManager("test-secret-32-characters-long!!", time.Hour, 7*24*time.Hour),
	}

	logger := testLogger()
	tx := &fakeTx{}
	hasher := pkgauth.NewHasher(bcrypt.MinCost)

	f.userService = NewUserService(f.users, hasher, f.publisher, trxid.NewGenerator("test"), logger)
	f.sessionLedger = NewSessionService(f.sessions, tx, f.tokens, 24*time.Hour, logger)

	f.authService = NewAuthService(AuthDependencies{
		Users:       f.userService,
		Lockout:     NewLockoutService(f.failures, DefaultLockoutThreshold, logger),
		Sessions:    f.sessionLedger,
		Resets:      NewPasswordResetService(f.resets, f.userService, tx, time.Hour, logger),
		Tokens:      f.tokens,
		Hasher:      hasher,
		Logger:      logger,
		AuditLogger: pkglogger.NewAuditLogger(logger),
	})
	return f
}

func (f *authFixture) register(username, email, password string) *models.User {
	user, err := f.authService.Register(context.Background(), RegisterInput{
		FullName: "Test " + username,
		Email:    email,
		Username: username,
		Password: password,
	})
	if err != nil {
		panic(err)
	}
	return user
}
