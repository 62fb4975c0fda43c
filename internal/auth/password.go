package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/dutch/internal/models"
	"github.com/mmynk/dutch/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters and include a letter and a number")
	ErrInvalidUsername    = errors.New("username must be between 3 and 20 characters")
	ErrInvalidEmail       = errors.New("invalid e-mail address")
	ErrUserExists         = errors.New("username or e-mail already exists")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	maxEmailLen    = 50
	minPasswordLen = 8
)

// UserStorage defines the interface for user persistence operations.
// This allows the authenticator to be independent of the storage implementation.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < minPasswordLen {
		return ErrWeakPassword
	}
	hasLetter := strings.IndexFunc(credential, unicode.IsLetter) >= 0
	hasDigit := strings.IndexFunc(credential, unicode.IsDigit) >= 0
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new user account with a hashed password.
// Emails are stored lowercased.
func (a *PasswordAuthenticator) Register(ctx context.Context, username, email, credential string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if n := len([]rune(username)); n < minUsernameLen || n > maxUsernameLen {
		return nil, ErrInvalidUsername
	}
	if len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	// Check if username or email already exists
	if existing, err := a.lookup(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUserExists
	}
	if existing, err := a.lookup(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUserExists
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(username, email, string(hashedPassword))

	if err := a.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the password of the user identified by username or
// email, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, identifier, credential string) (*models.User, error) {
	user, err := a.lookup(ctx, strings.TrimSpace(identifier))
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	// Compare password hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// lookup finds a user by username, falling back to email.
func (a *PasswordAuthenticator) lookup(ctx context.Context, identifier string) (*models.User, error) {
	user, err := a.storage.GetUserByUsername(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user, err = a.storage.GetUserByEmail(ctx, strings.ToLower(identifier))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}
