// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/dutch/internal/models"
)

var (
	// ErrDuplicate is returned when a write violates a uniqueness constraint
	// (group name per owner, username, email).
	ErrDuplicate = errors.New("record already exists")

	// ErrNotFound is returned by writes that target a missing or foreign record.
	ErrNotFound = errors.New("record not found")
)

// GroupChange describes the edits applied to a group in one transaction.
// Nil or empty fields are left untouched.
type GroupChange struct {
	GroupID string
	OwnerID string

	Name        *string
	TotalAmount *decimal.Decimal

	// NewMembers are inserted with their Paid amount; MemberCount is kept in sync.
	NewMembers []models.Member

	// Paid replaces the paid amount of existing members, keyed by user ID.
	Paid map[string]decimal.Decimal

	// ClearTransfers drops the stored settlement, leaving the group unsettled.
	ClearTransfers bool
}

// UserStore defines user persistence operations.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID, GetUserByUsername and GetUserByEmail return nil, nil when
	// the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// ResolveUserIDByUsername returns "" when no user has that username.
	ResolveUserIDByUsername(ctx context.Context, username string) (string, error)
}

// Store defines the ledger operations the settlement core relies on.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore

	// CreateGroup persists a group and its members in one transaction.
	// group.ID and group.CreatedAt are populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group, members []models.Member) error

	// GetGroup returns the group only if it is owned by ownerID; nil, nil otherwise.
	GetGroup(ctx context.Context, groupID, ownerID string) (*models.Group, error)

	// ListGroups returns every group owned by ownerID, oldest first.
	ListGroups(ctx context.Context, ownerID string) ([]*models.Group, error)

	// GroupNameExists reports whether ownerID already has a group called name.
	GroupNameExists(ctx context.Context, ownerID, name string) (bool, error)

	// ApplyGroupChange applies a GroupChange atomically.
	ApplyGroupChange(ctx context.Context, change *GroupChange) error

	// ListMembers returns the group's members ordered by user ID.
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)

	// ReplaceTransfers deletes every stored transfer of the group and inserts
	// transfers in their given order, all in one transaction.
	ReplaceTransfers(ctx context.Context, groupID string, transfers []models.Transfer) error

	// ListTransfers returns the stored settlement in creation order.
	ListTransfers(ctx context.Context, groupID string) ([]models.Transfer, error)

	// DeleteGroup removes the group with its members and transfers.
	// Returns ErrNotFound if the group does not exist or is not owned by ownerID.
	DeleteGroup(ctx context.Context, groupID, ownerID string) error

	// Close releases any resources held by the store.
	Close() error
}
