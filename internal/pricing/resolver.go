package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quote is the resolved price for a product at a given quantity.
type Quote struct {
	Quantity        int    `json:"quantity"`
	BasePrice       Money  `json:"basePrice"`
	UnitPrice       Money  `json:"unitPrice"`
	DiscountPercent Money  `json:"discountPercent"`
	TierID          *int64 `json:"tierId,omitempty"`
}

// ResolveUnitPrice computes the unit price and discount percent for quantity.
//
// Tiers are walked in ascending MinQty order and every tier containing the
// quantity overwrites the running result, so when ranges overlap the last
// matching tier wins. A price tier resets the discount to zero; a percent tier
// derives the unit price from the base price. Without a matching tier the base
// price applies with no discount. A matching tier with a negative price or a
// percent outside [0, 100] fails with ErrInvalidTier.
func ResolveUnitPrice(product Product, tiers []Tier, quantity int) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, ErrInvalidQuantity
	}
	if product.BasePrice.IsNegative() {
		return Quote{}, ErrNegativePrice
	}
	q := Quote{
		Quantity:        quantity,
		BasePrice:       product.BasePrice,
		UnitPrice:       product.BasePrice,
		DiscountPercent: decimal.Zero,
	}
	for _, tier := range NewTierTable(product, tiers).Matching(quantity) {
		switch {
		case tier.PricePerUnit != nil:
			if tier.PricePerUnit.IsNegative() {
				return Quote{}, fmt.Errorf("%w: tier %d has a negative price", ErrInvalidTier, tier.ID)
			}
			q.UnitPrice = *tier.PricePerUnit
			q.DiscountPercent = decimal.Zero
		case tier.DiscountPercent != nil:
			if !ValidPercent(*tier.DiscountPercent) {
				return Quote{}, fmt.Errorf("%w: tier %d has discount percent %s", ErrInvalidTier, tier.ID, tier.DiscountPercent.String())
			}
			q.DiscountPercent = *tier.DiscountPercent
			q.UnitPrice = RoundUnit(product.BasePrice.Sub(PercentOf(product.BasePrice, q.DiscountPercent)))
		default:
			continue
		}
		id := tier.ID
		q.TierID = &id
	}
	return q, nil
}
