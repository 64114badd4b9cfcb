package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/carshelf/internal/common"
	"github.com/isdelr/carshelf/internal/models"
)

// UserServiceProvider defines the interface for the account credential store.
type UserServiceProvider interface {
	CreateUser(ctx context.Context, account models.Account) (models.Account, error)
	GetUserByID(ctx context.Context, id string) (models.Account, error)
	GetUserByEmail(ctx context.Context, email string) (models.Account, error)
	GetUserByUsername(ctx context.Context, username string) (models.Account, error)
	ListUsersExcludingRole(ctx context.Context, role models.Role) ([]models.Account, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}

// UserService persists accounts in the users table.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, username, email, password_hash, role, is_deleted, created_at"

func scanUser(scanner interface{ Scan(...any) error }) (models.Account, error) {
	var a models.Account
	var role string
	if err := scanner.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.IsDeleted, &a.CreatedAt); err != nil {
		return models.Account{}, err
	}
	a.Role = models.Role(role)
	return a, nil
}

// CreateUser inserts a new account. The id and creation time are assigned here;
// a taken username or email yields common.ErrDuplicateKey.
func (s *UserService) CreateUser(ctx context.Context, account models.Account) (models.Account, error) {
	if !account.Role.Valid() {
		return models.Account{}, fmt.Errorf("%w: unknown role %q", common.ErrValidation, account.Role)
	}
	account.ID = uuid.New().String()
	account.CreatedAt = time.Now().UTC()
	account.IsDeleted = false

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, role, is_deleted, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)",
		account.ID, account.Username, account.Email, account.PasswordHash, string(account.Role), account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, fmt.Errorf("%w: username or email already registered", common.ErrDuplicateKey)
		}
		return models.Account{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return account, nil
}

// GetUserByID retrieves a single account by its ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.Account, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? AND is_deleted = 0", id)
}

// GetUserByEmail retrieves a single account by its email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? AND is_deleted = 0", email)
}

// GetUserByUsername retrieves a single account by its username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.Account, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? AND is_deleted = 0", username)
}

func (s *UserService) getOne(ctx context.Context, query string, arg string) (models.Account, error) {
	account, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, common.ErrNotFound
		}
		return models.Account{}, fmt.Errorf("failed to query user: %w", err)
	}
	return account, nil
}

// ListUsersExcludingRole returns every account whose role differs from role.
func (s *UserService) ListUsersExcludingRole(ctx context.Context, role models.Role) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role <> ? AND is_deleted = 0 ORDER BY created_at, rowid", string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteUser permanently removes an account.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ? AND is_deleted = 0", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// CountUsers returns the number of stored accounts.
func (s *UserService) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
