package pricing

import "github.com/shopspring/decimal"

// Summary aggregates computed order totals.
type Summary struct {
	Subtotal      Money `json:"subtotal"`
	DiscountValue Money `json:"discountValue"`
	PayableTotal  Money `json:"payableTotal"`
}

// Compute sums line totals and applies the order-level discount. It is a pure
// function of its inputs, so recomputing with unchanged lines yields the same
// summary.
func Compute(lineTotals []Money, discount Discount) Summary {
	subtotal := decimal.Zero
	for _, total := range lineTotals {
		if total.IsNegative() {
			continue
		}
		subtotal = subtotal.Add(total)
	}
	subtotal = RoundMoney(subtotal)
	value := discount.ValueFor(subtotal)
	return Summary{
		Subtotal:      subtotal,
		DiscountValue: value,
		PayableTotal:  ClampZero(subtotal.Sub(value)),
	}
}
