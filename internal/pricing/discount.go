package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountKind tags how an order-level discount is expressed.
type DiscountKind string

const (
	DiscountNone    DiscountKind = "none"
	DiscountPercent DiscountKind = "percent"
	DiscountValue   DiscountKind = "value"
)

// Discount is an order-level discount: either a percentage of the subtotal,
// which scales as items change, or a fixed value, which does not.
type Discount struct {
	Kind   DiscountKind `json:"kind"`
	Amount Money        `json:"amount"`
}

// NoDiscount returns the empty discount.
func NoDiscount() Discount {
	return Discount{Kind: DiscountNone, Amount: decimal.Zero}
}

// PercentDiscount returns a percentage discount.
func PercentDiscount(p Money) Discount {
	return Discount{Kind: DiscountPercent, Amount: p}
}

// ValueDiscount returns a fixed value discount.
func ValueDiscount(v Money) Discount {
	return Discount{Kind: DiscountValue, Amount: v}
}

// ParseDiscountKind normalises a stored or requested kind. Empty maps to none.
func ParseDiscountKind(value string) (DiscountKind, bool) {
	switch DiscountKind(strings.ToLower(strings.TrimSpace(value))) {
	case "", DiscountNone:
		return DiscountNone, true
	case DiscountPercent:
		return DiscountPercent, true
	case DiscountValue:
		return DiscountValue, true
	default:
		return "", false
	}
}

// Validate checks the amount against the kind.
func (d Discount) Validate() error {
	switch d.Kind {
	case DiscountNone, "":
		return nil
	case DiscountPercent:
		if !ValidPercent(d.Amount) {
			return ErrPercentOutOfRange
		}
	case DiscountValue:
		if d.Amount.IsNegative() {
			return ErrNegativeDiscount
		}
	default:
		return ErrUnknownDiscountKind
	}
	return nil
}

// ValueFor returns the discount amount applied to subtotal, capped at the
// subtotal.
func (d Discount) ValueFor(subtotal Money) Money {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	var value Money
	switch d.Kind {
	case DiscountPercent:
		value = RoundMoney(PercentOf(subtotal, d.Amount))
	case DiscountValue:
		value = RoundMoney(d.Amount)
	default:
		return decimal.Zero
	}
	if value.GreaterThan(subtotal) {
		value = subtotal
	}
	return ClampZero(value)
}
