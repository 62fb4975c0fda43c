package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
// Group members are referenced by user ID and resolved from usernames.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique handle other users add to groups (3-20 characters).
	Username string

	// Email is the user's email address (unique).
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	CreatedAt int64
	UpdatedAt int64
}

// NewUser builds a User with a fresh ID and timestamps.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
