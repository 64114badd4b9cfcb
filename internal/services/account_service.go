package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/carshelf/internal/auth"
	"github.com/isdelr/carshelf/internal/common"
	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/isdelr/carshelf/internal/notify"
	"github.com/rs/zerolog/log"
)

// Notifier accepts a message for asynchronous delivery.
type Notifier interface {
	Enqueue(msg notify.Message) bool
}

// SignupInput carries the fields of a signup request.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     string // empty means models.RoleUser
}

// SessionUpdate is what a successful login asks the session to record.
type SessionUpdate struct {
	Account  models.Account
	UserID   string
	Language *models.Language // nil when the client sent no supported language
}

// AccountServiceProvider defines the interface for account workflows.
type AccountServiceProvider interface {
	Signup(ctx context.Context, in SignupInput) (models.Account, error)
	Login(ctx context.Context, email, password, language string) (SessionUpdate, error)
	RemoveAccount(ctx context.Context, id string) error
	ListNonAdmins(ctx context.Context) ([]models.Account, error)
	GetAccount(ctx context.Context, id string) (models.Account, error)
	EnsureAdmin(ctx context.Context, username, email, password string) error
}

// AccountService orchestrates signup, login and account removal.
type AccountService struct {
	users      UserServiceProvider
	hasher     auth.PasswordHasher
	notifier   Notifier
	events     EventServiceProvider
	metrics    *metrics.Metrics
	attachment string
	dummyHash  string
}

// AccountServiceOptions holds the optional collaborators of an AccountService.
type AccountServiceOptions struct {
	Notifier   Notifier
	Events     EventServiceProvider
	Metrics    *metrics.Metrics
	Attachment string // inline image for the welcome email
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserServiceProvider, hasher auth.PasswordHasher, opts AccountServiceOptions) *AccountService {
	s := &AccountService{
		users:      users,
		hasher:     hasher,
		notifier:   opts.Notifier,
		events:     opts.Events,
		metrics:    opts.Metrics,
		attachment: opts.Attachment,
	}
	// Compared against when the email is unknown so both failure paths cost one verification.
	if h, err := hasher.Hash("carshelf-dummy-password"); err == nil {
		s.dummyHash = h
	}
	return s
}

// Signup hashes the password, persists the account and then queues the welcome
// email. Notification failures never affect the result.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (models.Account, error) {
	account, err := s.signup(ctx, in)
	switch {
	case err == nil:
		s.countSignup("success")
	case errors.Is(err, common.ErrDuplicateKey):
		s.countSignup("duplicate")
	case errors.Is(err, common.ErrValidation):
		s.countSignup("invalid")
	default:
		s.countSignup("error")
	}
	return account, err
}

func (s *AccountService) signup(ctx context.Context, in SignupInput) (models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return models.Account{}, fmt.Errorf("%w: username, email and password are required", common.ErrValidation)
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return models.Account{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.users.CreateUser(ctx, models.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return models.Account{}, err
	}

	s.record(ctx, "account.create", fmt.Sprintf("Account '%s' registered.", account.Username), account.ID)
	if s.notifier != nil {
		s.notifier.Enqueue(notify.WelcomeMessage(account.Email, s.attachment))
	}

	account.PasswordHash = ""
	return account, nil
}

func (s *AccountService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email already registered", common.ErrDuplicateKey)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username already taken", common.ErrDuplicateKey)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

// Login verifies the credentials. An unknown email and a wrong password both
// yield common.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password, language string) (SessionUpdate, error) {
	account, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.countLogin("error")
			return SessionUpdate{}, err
		}
		s.hasher.Verify(password, s.dummyHash)
		s.countLogin("invalid_credentials")
		return SessionUpdate{}, common.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.countLogin("invalid_credentials")
		return SessionUpdate{}, common.ErrInvalidCredentials
	}

	update := SessionUpdate{UserID: account.ID}
	if lang, ok := models.ParseLanguage(language); ok {
		update.Language = &lang
	}
	account.PasswordHash = ""
	update.Account = account

	s.countLogin("success")
	return update, nil
}

// RemoveAccount hard-deletes a non-admin account. Admin accounts are never removed.
func (s *AccountService) RemoveAccount(ctx context.Context, id string) error {
	account, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if account.IsAdmin() {
		return common.ErrProtectedAccount
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "account.delete", fmt.Sprintf("Account '%s' deleted.", account.Username), account.ID)
	return nil
}

// ListNonAdmins returns every account without the admin role.
func (s *AccountService) ListNonAdmins(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.users.ListUsersExcludingRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].PasswordHash = ""
	}
	return accounts, nil
}

// GetAccount returns an account without its password hash.
func (s *AccountService) GetAccount(ctx context.Context, id string) (models.Account, error) {
	account, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	account.PasswordHash = ""
	return account, nil
}

// EnsureAdmin creates an admin account unless the email is already registered.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	account, err := s.users.CreateUser(ctx, models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	log.Info().Str("user_id", account.ID).Str("username", account.Username).Msg("Bootstrap admin account created")
	return nil
}

func (s *AccountService) record(ctx context.Context, eventType, message, subjectID string) {
	if s.events == nil {
		return
	}
	_ = s.events.CreateEvent(ctx, eventType, "info", message, &subjectID)
}

func (s *AccountService) countSignup(outcome string) {
	if s.metrics != nil {
		s.metrics.Signups.WithLabelValues(outcome).Inc()
	}
}

func (s *AccountService) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}
