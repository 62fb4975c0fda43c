package calculator

import "github.com/shopspring/decimal"

// Transfer represents a debt from one person to another.
type Transfer struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

type party struct {
	userID    string
	remaining decimal.Decimal
}

// Match turns balances into the transfers that settle them.
//
// Debtors are visited in ascending user ID order and, for each one, creditors in
// ascending user ID order. Each step moves min(remaining debt, remaining credit),
// rounded to Precision. Transfers come back in the order they were created
// (debtor-major, creditor-minor).
//
// Rounding residue is not redistributed: a party may keep up to one cent per
// transfer unsettled. Balances of zero take part in no transfer.
func Match(balances []Balance) []Transfer {
	merged := make(map[string]decimal.Decimal, len(balances))
	for _, b := range balances {
		merged[b.UserID] = merged[b.UserID].Add(b.Balance)
	}
	ordered := make([]Balance, 0, len(merged))
	for userID, balance := range merged {
		ordered = append(ordered, Balance{UserID: userID, Balance: balance})
	}
	sortByUser(ordered)

	var debtors, creditors []*party
	for _, b := range ordered {
		switch {
		case b.Balance.IsNegative():
			debtors = append(debtors, &party{userID: b.UserID, remaining: b.Balance.Neg()})
		case b.Balance.IsPositive():
			creditors = append(creditors, &party{userID: b.UserID, remaining: b.Balance})
		}
	}

	transfers := []Transfer{}
	for _, debtor := range debtors {
		for _, creditor := range creditors {
			if !debtor.remaining.IsPositive() {
				break
			}
			if !creditor.remaining.IsPositive() {
				continue
			}

			amount := decimal.Min(debtor.remaining, creditor.remaining).Round(Precision)
			if !amount.IsPositive() {
				continue
			}

			transfers = append(transfers, Transfer{
				From:   debtor.userID,
				To:     creditor.userID,
				Amount: amount,
			})
			debtor.remaining = debtor.remaining.Sub(amount)
			creditor.remaining = creditor.remaining.Sub(amount)
		}
	}

	return transfers
}
