package calculator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// ExpenseForBalance represents an expense with the minimal information needed for balance calculations.
type ExpenseForBalance struct {
	PayerID string
	Amount  decimal.Decimal
	Shares  []Share
}

// Transfer represents a payment from one person to another.
type Transfer struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances computes every participant's net position.
//
// Algorithm:
//   - For each expense: payer is credited the full amount
//   - Each share's user is debited the share amount (the payer included, so a
//     paying participant nets to amount minus their own share)
//
// Settlements are expenses too and need no special handling. Duplicate shares
// for one user are simply summed.
func CalculateGroupBalances(expenses []ExpenseForBalance) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		balances[e.PayerID] = balances[e.PayerID].Add(e.Amount)
		for _, s := range e.Shares {
			balances[s.UserID] = balances[s.UserID].Sub(s.Amount)
		}
	}

	return balances
}

type party struct {
	id     string
	amount decimal.Decimal
}

// byAmountDesc orders parties by amount descending, then by ID ascending so
// equal amounts always match in the same order.
func byAmountDesc(a, b party) int {
	if c := b.amount.Cmp(a.amount); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// OptimalSettlements turns net balances into a short list of transfers that
// zero every balance.
//
// Greedy matching: creditors (> 0.01) and debtors (< -0.01) are each sorted
// largest first; the head debtor pays the head creditor min(owed, due), and
// any party left within a cent of zero drops out. This is not guaranteed to
// be the absolute minimum number of transfers, but it is deterministic.
func OptimalSettlements(balances map[string]decimal.Decimal) []Transfer {
	var creditors, debtors []party
	for id, amount := range balances {
		switch {
		case amount.GreaterThan(Tolerance):
			creditors = append(creditors, party{id: id, amount: amount})
		case amount.LessThan(Tolerance.Neg()):
			debtors = append(debtors, party{id: id, amount: amount.Neg()})
		}
	}

	slices.SortFunc(creditors, byAmountDesc)
	slices.SortFunc(debtors, byAmountDesc)

	var transfers []Transfer
	for len(creditors) > 0 && len(debtors) > 0 {
		creditor, debtor := &creditors[0], &debtors[0]

		amount := decimal.Min(creditor.amount, debtor.amount)
		if amount.GreaterThan(Tolerance) {
			transfers = append(transfers, Transfer{
				From:   debtor.id,
				To:     creditor.id,
				Amount: RoundCents(amount),
			})
		}

		creditor.amount = creditor.amount.Sub(amount)
		debtor.amount = debtor.amount.Sub(amount)

		if creditor.amount.LessThanOrEqual(Tolerance) {
			creditors = creditors[1:]
		}
		if debtor.amount.LessThanOrEqual(Tolerance) {
			debtors = debtors[1:]
		}
	}

	return transfers
}

// TotalDebt sums the absolute value of every negative balance.
func TotalDebt(balances map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range balances {
		if amount.IsNegative() {
			total = total.Add(amount.Abs())
		}
	}
	return total
}
