package calculator

import "github.com/shopspring/decimal"

// CentPlaces is the number of decimal places every monetary value is rounded to.
const CentPlaces = 2

var (
	// Tolerance is the largest difference still treated as equal (one cent).
	Tolerance = decimal.New(1, -CentPlaces)

	hundred = decimal.NewFromInt(100)
)

// RoundCents rounds half away from zero to two decimal places. It is the only
// rounding rule used for money in this module.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// SameCents reports whether a and b are equal once both are rounded to the cent.
func SameCents(a, b decimal.Decimal) bool {
	return RoundCents(a).Equal(RoundCents(b))
}

// NearlyZero reports whether d is within one cent of zero.
func NearlyZero(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Tolerance)
}
