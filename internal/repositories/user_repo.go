package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/sessionauth/internal/database"
	"github.com/BradenHooton/sessionauth/internal/models"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, full_name, email, username, password, is_active, email_verified, role, permissions, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUserRow populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.FullName, &user.Email, &user.Username, &user.PasswordHash,
		&user.IsActive, &user.EmailVerified, &user.Role, &user.Permissions,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if user.Permissions == nil {
		user.Permissions = []string{}
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM m_users WHERE id = $1`
	return scanUserRow(r.db.Querier(ctx).QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM m_users WHERE username = $1`
	return scanUserRow(r.db.Querier(ctx).QueryRow(ctx, query, username))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM m_users WHERE email = $1`
	return scanUserRow(r.db.Querier(ctx).QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM m_users ORDER BY id ASC LIMIT $1 OFFSET $2`

	rows, err := r.db.Querier(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// Create inserts user and returns the stored row.
// A duplicate username or email surfaces as models.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Role == "" {
		user.Role = models.DefaultRole
	}
	if user.Permissions == nil {
		user.Permissions = []string{}
	}

	query := `
		INSERT INTO m_users (full_name, email, username, password, is_active, email_verified, role, permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Querier(ctx).QueryRow(ctx, query,
		user.FullName, user.Email, user.Username, user.PasswordHash,
		user.IsActive, user.EmailVerified, user.Role, user.Permissions,
	))
}

// UpdatePassword replaces the stored hash. A missing user is models.ErrNotFound.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE m_users SET password = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Querier(ctx).Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdateProfile writes only the non-nil fields of update
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.FullName != nil {
		add("full_name", *update.FullName)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.Username != nil {
		add("username", *update.Username)
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE m_users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	return scanUserRow(r.db.Querier(ctx).QueryRow(ctx, query, args...))
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM m_users WHERE id = $1`

	result, err := r.db.Querier(ctx).Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
