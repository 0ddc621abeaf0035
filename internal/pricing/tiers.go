package pricing

import "sort"

// Product is the catalog snapshot the resolver prices against.
type Product struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	BasePrice Money  `json:"basePrice"`
}

// Tier is a quantity range with a single pricing rule. MaxQty nil means the
// range is unbounded upwards. Exactly one of PricePerUnit and DiscountPercent
// is expected to be set.
type Tier struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"productId"`
	MinQty          int    `json:"minQty"`
	MaxQty          *int   `json:"maxQty,omitempty"`
	PricePerUnit    *Money `json:"pricePerUnit,omitempty"`
	DiscountPercent *Money `json:"discountPercent,omitempty"`
}

// Contains reports whether qty falls inside the tier, both bounds inclusive.
func (t Tier) Contains(qty int) bool {
	if qty < t.MinQty {
		return false
	}
	return t.MaxQty == nil || qty <= *t.MaxQty
}

// Unbounded reports whether the tier has no upper limit.
func (t Tier) Unbounded() bool {
	return t.MaxQty == nil
}

// TierTable is the ordered tier list of one product.
type TierTable struct {
	Product Product `json:"product"`
	Tiers   []Tier  `json:"tiers"`
}

// NewTierTable copies tiers and orders them by ascending MinQty. Ties keep
// their definition order.
func NewTierTable(product Product, tiers []Tier) TierTable {
	return TierTable{Product: product, Tiers: SortTiers(tiers)}
}

// Matching returns the tiers containing qty in iteration order.
func (t TierTable) Matching(qty int) []Tier {
	var out []Tier
	for _, tier := range t.Tiers {
		if tier.Contains(qty) {
			out = append(out, tier)
		}
	}
	return out
}

// Resolve prices qty against the table.
func (t TierTable) Resolve(qty int) (Quote, error) {
	return ResolveUnitPrice(t.Product, t.Tiers, qty)
}

// SortTiers returns a copy of tiers in ascending MinQty order.
func SortTiers(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinQty < out[j].MinQty
	})
	return out
}
