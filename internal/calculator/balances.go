package calculator

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept for balances and transfers.
const Precision = 2

var (
	ErrInsufficientMembers = errors.New("a minimum of 2 members is required")
	ErrInvalidTotal        = errors.New("total amount must be greater than zero")
)

// Contribution is what one member actually paid into a group.
type Contribution struct {
	UserID string
	Paid   decimal.Decimal
}

// Balance represents the balance information for one group member.
type Balance struct {
	UserID string
	Paid   decimal.Decimal

	// Balance is Paid minus the equal share, rounded to Precision.
	// Positive = owed money, Negative = owes money.
	Balance decimal.Decimal
}

// ComputeBalances computes every member's balance against an equal split of total.
//
// Algorithm:
// - equal_share = total / member_count (decimal division, no truncation)
// - balance = round(paid - equal_share, 2), rounding half away from zero
//
// Contributions sharing a user ID are merged first. The result is sorted by user ID.
func ComputeBalances(total decimal.Decimal, contributions []Contribution) ([]Balance, error) {
	paid := make(map[string]decimal.Decimal, len(contributions))
	for _, c := range contributions {
		paid[c.UserID] = paid[c.UserID].Add(c.Paid)
	}

	if len(paid) < 2 {
		return nil, ErrInsufficientMembers
	}
	if !total.IsPositive() {
		return nil, ErrInvalidTotal
	}

	share := total.Div(decimal.NewFromInt(int64(len(paid))))

	balances := make([]Balance, 0, len(paid))
	for userID, amount := range paid {
		balances = append(balances, Balance{
			UserID:  userID,
			Paid:    amount,
			Balance: amount.Sub(share).Round(Precision),
		})
	}
	sortByUser(balances)

	return balances, nil
}

func sortByUser(balances []Balance) {
	sort.Slice(balances, func(i, j int) bool { return balances[i].UserID < balances[j].UserID })
}
