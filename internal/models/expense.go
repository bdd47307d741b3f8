package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitPolicy is the rule used to divide an expense into shares.
type SplitPolicy string

const (
	PolicyEqual      SplitPolicy = "equal"
	PolicyExact      SplitPolicy = "exact"
	PolicyPercentage SplitPolicy = "percentage"
)

// ParseSplitPolicy converts a wire value into a SplitPolicy.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch p := SplitPolicy(s); p {
	case PolicyEqual, PolicyExact, PolicyPercentage:
		return p, nil
	default:
		return "", fmt.Errorf("unknown split policy %q", s)
	}
}

// Expense is an amount paid by one user and owed, in shares, by others.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Description is optional free text.
	Description string

	// Amount is the total paid. Always positive.
	Amount decimal.Decimal

	// PayerID is the user who paid the full amount.
	PayerID string

	// GroupID is the owning group, empty for personal expenses.
	GroupID string

	// Policy records how the amount was split.
	Policy SplitPolicy

	// IsSettlement marks expenses that record a real-world repayment.
	IsSettlement bool

	// CreatedAt is the Unix timestamp when the expense was created.
	CreatedAt int64

	// Shares are populated by ListExpensesForGroup and GetExpense.
	Shares []ExpenseShare
}

// ExpenseShare is the part of an expense owed by one user.
type ExpenseShare struct {
	ID        string
	ExpenseID string
	UserID    string
	Amount    decimal.Decimal
	IsPaid    bool
}

// ShareTotal sums the amounts of the expense's shares.
func (e *Expense) ShareTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range e.Shares {
		total = total.Add(s.Amount)
	}
	return total
}

// HasShareFor reports whether userID holds a share of the expense.
func (e *Expense) HasShareFor(userID string) bool {
	for _, s := range e.Shares {
		if s.UserID == userID {
			return true
		}
	}
	return false
}
