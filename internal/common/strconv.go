package common

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Column limits for request amounts, matching the NUMERIC columns they land in.
const (
	moneyDigits = 10 // NUMERIC(12,2)
	moneyScale  = 2
	unitDigits  = 8 // NUMERIC(12,4)
	unitScale   = 4

	// extra fractional digits tolerated before rounding to the column scale
	fractionSlack = 8
)

// ParseID parses a positive integer identifier. label names the field in the
// InvalidArgument message.
func ParseID(value, label string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, InvalidArgument("%s must be a positive integer", label)
	}
	return id, nil
}

// URLParamID reads a positive integer chi route parameter.
func URLParamID(r *http.Request, param, label string) (int64, error) {
	return ParseID(chi.URLParam(r, param), label)
}

// ParseMoney parses an amount stored with two decimals, such as a payment or
// a discount.
func ParseMoney(value, label string) (decimal.Decimal, error) {
	return ParseDecimal(value, label, moneyDigits, moneyScale)
}

// ParseUnitPrice parses a per-unit price stored with four decimals.
func ParseUnitPrice(value, label string) (decimal.Decimal, error) {
	return ParseDecimal(value, label, unitDigits, unitScale)
}

// ParseDecimal parses a decimal whose absolute value has at most intDigits
// integer digits. The exponent is bounded before any arithmetic, so inputs
// like "1e999999999" are rejected without being expanded.
func ParseDecimal(value, label string, intDigits, scale int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, InvalidArgument("%s must be a decimal number", label)
	}
	if exp := d.Exponent(); exp > intDigits || exp < -(scale+fractionSlack) {
		return decimal.Zero, InvalidArgument("%s is out of range", label)
	}
	if d.Abs().GreaterThanOrEqual(decimal.New(1, intDigits)) {
		return decimal.Zero, InvalidArgument("%s is out of range", label)
	}
	return d, nil
}
