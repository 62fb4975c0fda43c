package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/dutch/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewPasswordAuthenticator(store)
}

func TestValidateCredential(t *testing.T) {
	a := &PasswordAuthenticator{}
	assert.NoError(t, a.ValidateCredential("hunter22x"))
	assert.ErrorIs(t, a.ValidateCredential("short1"), ErrWeakPassword)
	assert.ErrorIs(t, a.ValidateCredential("lettersonly"), ErrWeakPassword)
	assert.ErrorIs(t, a.ValidateCredential("1234567890"), ErrWeakPassword)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t)

	user, err := a.Register(ctx, " alice ", "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHash)

	for _, identifier := range []string{"alice", "alice@example.com", "ALICE@example.com"} {
		got, err := a.Authenticate(ctx, identifier, "password123")
		require.NoError(t, err, identifier)
		assert.Equal(t, user.ID, got.ID)
	}

	_, err = a.Authenticate(ctx, "alice", "wrong-pass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Register(ctx, "alice", "new@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = a.Register(ctx, "alice2", "ALICE@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = a.Register(ctx, "a", "a@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = a.Register(ctx, "carol", "not-an-email", "password123")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}
