package settlement

import (
	"errors"
	"fmt"

	"github.com/mmynk/dutch/internal/calculator"
)

// Validation errors. They are detected before any write and are safe to show to clients.
var (
	ErrNotFound                   = errors.New("group not found")
	ErrInsufficientMembers        = calculator.ErrInsufficientMembers
	ErrInvalidTotal               = calculator.ErrInvalidTotal
	ErrTotalMismatch              = errors.New("total amount and individual contributions do not match")
	ErrInconsistentTotal          = errors.New("stored total does not match the members' paid amounts")
	ErrDuplicateGroup             = errors.New("you already have a group with this name")
	ErrUserNotFound               = errors.New("user not found")
	ErrMissingCreatorContribution = errors.New("creator's paid amount must be provided")
	ErrPendingReconciliation      = errors.New("paid amounts do not add up to the total, update spending")
	ErrInvalidInput               = errors.New("invalid input")
)

// ErrStorage marks failures of the ledger store. Unlike the validation errors it
// points at a server-side fault, not at bad input.
var ErrStorage = errors.New("storage failure")

// UserNotFoundError names the username that could not be resolved.
// It matches ErrUserNotFound with errors.Is.
type UserNotFoundError struct {
	Username string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user '%s' not found", e.Username)
}

func (e *UserNotFoundError) Is(target error) bool {
	return target == ErrUserNotFound
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
