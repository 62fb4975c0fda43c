package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bal(userID, balance string) Balance {
	return Balance{UserID: userID, Balance: d(balance)}
}

func assertTransfers(t *testing.T, want, got []Transfer) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].From, got[i].From, "transfer %d from", i)
		assert.Equal(t, want[i].To, got[i].To, "transfer %d to", i)
		assert.True(t, want[i].Amount.Equal(got[i].Amount),
			"transfer %d amount = %s, want %s", i, got[i].Amount, want[i].Amount)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		balances []Balance
		want     []Transfer
	}{
		{
			name:     "one creditor two debtors",
			balances: []Balance{bal("A", "200"), bal("B", "-100"), bal("C", "-100")},
			want: []Transfer{
				{From: "B", To: "A", Amount: d("100")},
				{From: "C", To: "A", Amount: d("100")},
			},
		},
		{
			name:     "two members",
			balances: []Balance{bal("A", "50"), bal("B", "-50")},
			want:     []Transfer{{From: "B", To: "A", Amount: d("50")}},
		},
		{
			name:     "debtor split across creditors",
			balances: []Balance{bal("A", "50"), bal("B", "30"), bal("C", "-40"), bal("D", "-40")},
			want: []Transfer{
				{From: "C", To: "A", Amount: d("40")},
				{From: "D", To: "A", Amount: d("10")},
				{From: "D", To: "B", Amount: d("30")},
			},
		},
		{
			name:     "input order does not matter",
			balances: []Balance{bal("D", "-40"), bal("B", "30"), bal("C", "-40"), bal("A", "50")},
			want: []Transfer{
				{From: "C", To: "A", Amount: d("40")},
				{From: "D", To: "A", Amount: d("10")},
				{From: "D", To: "B", Amount: d("30")},
			},
		},
		{
			name:     "zero balances are skipped",
			balances: []Balance{bal("A", "10"), bal("B", "0"), bal("C", "-10")},
			want:     []Transfer{{From: "C", To: "A", Amount: d("10")}},
		},
		{
			name:     "rounding residue stays with the creditor",
			balances: []Balance{bal("A", "66.67"), bal("B", "-33.33"), bal("C", "-33.33")},
			want: []Transfer{
				{From: "B", To: "A", Amount: d("33.33")},
				{From: "C", To: "A", Amount: d("33.33")},
			},
		},
		{
			name:     "duplicate entries merge into one transfer",
			balances: []Balance{bal("A", "20"), bal("B", "-5"), bal("B", "-15")},
			want:     []Transfer{{From: "B", To: "A", Amount: d("20")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTransfers(t, tt.want, Match(tt.balances))
		})
	}
}

func TestMatch_Degenerate(t *testing.T) {
	for name, balances := range map[string][]Balance{
		"nil":      nil,
		"empty":    {},
		"all zero": {bal("A", "0"), bal("B", "0")},
	} {
		t.Run(name, func(t *testing.T) {
			got := Match(balances)
			require.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestMatch_SettlesBalances(t *testing.T) {
	groups := []struct {
		total string
		paid  []string
	}{
		{"300", []string{"300", "0", "0"}},
		{"100", []string{"100", "0", "0"}},
		{"10", []string{"1", "2", "3", "4", "0", "0", "0"}},
		{"123.45", []string{"23.45", "100", "0"}},
		{"250", []string{"120", "80", "50", "0", "0"}},
		{"77.77", []string{"7.77", "70", "0", "0", "0", "0"}},
	}

	for _, g := range groups {
		var cs []Contribution
		for i, p := range g.paid {
			cs = append(cs, Contribution{UserID: string(rune('a' + i)), Paid: d(p)})
		}
		balances, err := ComputeBalances(d(g.total), cs)
		require.NoError(t, err)

		transfers := Match(balances)

		remaining := make(map[string]decimal.Decimal)
		debtors, creditors := 0, 0
		for _, b := range balances {
			remaining[b.UserID] = b.Balance
			if b.Balance.IsNegative() {
				debtors++
			} else if b.Balance.IsPositive() {
				creditors++
			}
		}
		seen := make(map[[2]string]bool)
		for _, tr := range transfers {
			assert.NotEqual(t, tr.From, tr.To, "self transfer")
			assert.True(t, tr.Amount.IsPositive())
			assert.True(t, tr.Amount.Equal(tr.Amount.Round(Precision)))
			pair := [2]string{tr.From, tr.To}
			assert.False(t, seen[pair], "pair %v repeated", pair)
			seen[pair] = true

			remaining[tr.From] = remaining[tr.From].Add(tr.Amount)
			remaining[tr.To] = remaining[tr.To].Sub(tr.Amount)
		}

		if debtors > 0 && creditors > 0 {
			assert.LessOrEqual(t, len(transfers), debtors+creditors-1)
		}
		for userID, r := range remaining {
			assert.True(t, r.Abs().LessThanOrEqual(d("0.01")),
				"total %s: %s left with %s", g.total, userID, r)
		}
	}
}

func TestMatch_Deterministic(t *testing.T) {
	first := []Balance{bal("u1", "75"), bal("u2", "-25"), bal("u3", "-25"), bal("u4", "-25")}
	isomorphic := []Balance{bal("x7", "75"), bal("x8", "-25"), bal("x9", "-25"), bal("y1", "-25")}

	a := Match(first)
	b := Match(isomorphic)
	require.Len(t, b, len(a))

	index := func(bs []Balance) map[string]int {
		m := make(map[string]int)
		for i, b := range bs {
			m[b.UserID] = i
		}
		return m
	}
	ia, ib := index(first), index(isomorphic)
	for i := range a {
		assert.Equal(t, ia[a[i].From], ib[b[i].From])
		assert.Equal(t, ia[a[i].To], ib[b[i].To])
		assert.True(t, a[i].Amount.Equal(b[i].Amount))
	}

	assert.Equal(t, a, Match(first), "repeated runs must be identical")
}
