package models

import "github.com/shopspring/decimal"

// Transfer is one edge of a computed settlement: FromUserID owes ToUserID Amount.
// Transfers are the output of the most recent settlement run for a group.
type Transfer struct {
	// GroupID is the group this transfer belongs to.
	GroupID string

	// Position is the index of the transfer in the order the matcher produced it.
	Position int

	// FromUserID is the debtor.
	FromUserID string

	// ToUserID is the creditor.
	ToUserID string

	// Amount is positive and rounded to 2 decimal places.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp of the settlement run that produced this transfer.
	CreatedAt int64
}
