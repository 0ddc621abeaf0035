package pricing

import "github.com/shopspring/decimal"

// LineInput describes one order line for total calculation.
type LineInput struct {
	Quantity        int
	UnitPrice       Money
	DiscountPercent Money
	// ManualDiscount, when set, replaces the percent-derived discount value.
	ManualDiscount *Money
}

// LineTotals are the computed amounts of a line. Base is the line amount
// before any discount.
type LineTotals struct {
	Base          Money `json:"base"`
	DiscountValue Money `json:"discountValue"`
	Total         Money `json:"total"`
}

// ComputeLine calculates base, discount value and total for a line. The total
// never drops below zero.
func ComputeLine(in LineInput) (LineTotals, error) {
	if in.Quantity <= 0 {
		return LineTotals{}, ErrInvalidQuantity
	}
	if in.UnitPrice.IsNegative() {
		return LineTotals{}, ErrNegativePrice
	}
	if !ValidPercent(in.DiscountPercent) {
		return LineTotals{}, ErrPercentOutOfRange
	}
	base := RoundMoney(in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))

	discount := decimal.Zero
	switch {
	case in.ManualDiscount != nil:
		if in.ManualDiscount.IsNegative() {
			return LineTotals{}, ErrNegativeDiscount
		}
		discount = RoundMoney(*in.ManualDiscount)
	case in.DiscountPercent.IsPositive():
		discount = RoundMoney(PercentOf(base, in.DiscountPercent))
	}

	return LineTotals{
		Base:          base,
		DiscountValue: discount,
		Total:         ClampZero(base.Sub(discount)),
	}, nil
}
