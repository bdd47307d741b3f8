package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNoParticipants    = errors.New("no participants provided")
	ErrNegativeShare     = errors.New("share amount cannot be negative")
	ErrSharesMismatch    = errors.New("shares do not sum up to total amount")
	ErrInvalidPercentage = errors.New("percentage must be greater than 0 and at most 100")
	ErrPercentageTotal   = errors.New("total percentage must be 100")
)

// Share is one user's computed part of an expense.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

// PercentageShare is one user's requested percentage of an expense.
type PercentageShare struct {
	UserID  string
	Percent decimal.Decimal
}

// EqualShares divides total evenly among participants, rounding each share
// to the cent. The rounded shares may differ from total by up to
// (n-1) cents; that slack is accepted and never redistributed.
func EqualShares(total decimal.Decimal, participants []string) ([]Share, error) {
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	each := total.DivRound(decimal.NewFromInt(int64(len(participants))), CentPlaces)
	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{UserID: p, Amount: each}
	}
	return shares, nil
}

// ExactShares validates caller-provided shares against total.
// The sum of the given amounts, rounded to the cent, must equal total rounded
// to the cent. Returned shares are rounded to the cent.
func ExactShares(total decimal.Decimal, given []Share) ([]Share, error) {
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if len(given) == 0 {
		return nil, ErrNoParticipants
	}

	sum := decimal.Zero
	shares := make([]Share, len(given))
	for i, s := range given {
		if s.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: user %s", ErrNegativeShare, s.UserID)
		}
		sum = sum.Add(s.Amount)
		shares[i] = Share{UserID: s.UserID, Amount: RoundCents(s.Amount)}
	}

	if !SameCents(sum, total) {
		return nil, fmt.Errorf("%w: shares total %s, expense total %s", ErrSharesMismatch, sum.StringFixed(CentPlaces), total.StringFixed(CentPlaces))
	}
	return shares, nil
}

// PercentageShares converts percentages into amounts: round(total × pct / 100).
// Each percentage must lie in (0, 100] and their sum, rounded to two places,
// must be exactly 100.
func PercentageShares(total decimal.Decimal, given []PercentageShare) ([]Share, error) {
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if len(given) == 0 {
		return nil, ErrNoParticipants
	}

	sum := decimal.Zero
	for _, p := range given {
		if !p.Percent.IsPositive() || p.Percent.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: user %s has %s", ErrInvalidPercentage, p.UserID, p.Percent.String())
		}
		sum = sum.Add(p.Percent)
	}
	if !SameCents(sum, hundred) {
		return nil, fmt.Errorf("%w: got %s", ErrPercentageTotal, sum.String())
	}

	shares := make([]Share, len(given))
	for i, p := range given {
		shares[i] = Share{
			UserID: p.UserID,
			Amount: total.Mul(p.Percent).DivRound(hundred, CentPlaces),
		}
	}
	return shares, nil
}
