package models

import "github.com/shopspring/decimal"

// Group represents a shared-expense pool owned by one user.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	// Unique per owner.
	Name string

	// OwnerID is the user who created the group. Only the owner can read or change it.
	OwnerID string

	// TotalAmount is the declared total spent by the group.
	// It must equal the sum of the members' paid amounts when settlement is computed.
	TotalAmount decimal.Decimal

	// MemberCount is the number of distinct members.
	MemberCount int

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member is a user's participation record within a group.
type Member struct {
	GroupID string
	UserID  string

	// Username is joined from the users table on reads; ignored on writes.
	Username string

	// Paid is the amount this member actually paid into the group.
	Paid decimal.Decimal
}
