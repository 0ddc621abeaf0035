package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value. Totals are kept at cent precision and
// unit prices at four decimal places, matching the storage columns.
type Money = decimal.Decimal

const (
	moneyPlaces = 2
	unitPlaces  = 4
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(m Money) Money {
	return m.Round(moneyPlaces)
}

// RoundUnit rounds a per-unit price to four places.
func RoundUnit(m Money) Money {
	return m.Round(unitPlaces)
}

// ClampZero returns m, or zero when m is negative.
func ClampZero(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// PercentOf returns base * percent / 100.
func PercentOf(base, percent Money) Money {
	return base.Mul(percent).Div(hundred)
}

// ValidPercent reports whether p lies in [0, 100].
func ValidPercent(p Money) bool {
	return !p.IsNegative() && !p.GreaterThan(hundred)
}

// MustMoney parses a decimal literal and panics on malformed input. Intended
// for constants and tests.
func MustMoney(value string) Money {
	return decimal.RequireFromString(value)
}
