// Package auth registers users and issues the bearer tokens that identify
// group owners.
package auth

import (
	"context"

	"github.com/mmynk/dutch/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account. The credential format depends on
	// the implementation.
	Register(ctx context.Context, username, email, credential string) (*models.User, error)

	// Authenticate verifies the credential of the user identified by username
	// or email and returns the user if successful.
	Authenticate(ctx context.Context, identifier, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
