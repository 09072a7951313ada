package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetmon-server/internal/domain"
)

const userColumns = `id, email, password_hash, name, role, provider, created_at, updated_at, last_login_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var hash sql.NullString
	var role, provider string
	var createdAt, updatedAt int64
	var lastLogin sql.NullInt64

	err := row.Scan(&u.ID, &u.Email, &hash, &u.Name, &role, &provider, &createdAt, &updatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	u.PasswordHash = fromNullString(hash)
	u.Role = domain.Role(role)
	u.Provider = domain.Provider(provider)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	u.LastLoginAt = fromNullUnix(lastLogin)

	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.Name,
		string(u.Role),
		string(u.Provider),
		toUnix(now),
		toUnix(now),
		toNullUnix(u.LastLoginAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`, toUnix(at), toUnix(at), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return requireRow(res, domain.ErrUserNotFound)
}
