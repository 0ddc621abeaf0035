package catalog

import (
	"fmt"

	"github.com/noah-isme/backend-printshop/internal/pricing"
)

// Issue kinds reported by ValidateTiers.
const (
	IssueMinQty        = "min_qty"
	IssueRange         = "range"
	IssueNoRule        = "no_rule"
	IssueBothRules     = "both_rules"
	IssuePercent       = "percent"
	IssueNegativePrice = "negative_price"
	IssueOverlap       = "overlap"
)

// TierIssue describes one authoring problem in a tier table.
type TierIssue struct {
	TierID  int64  `json:"tierId"`
	OtherID int64  `json:"otherId,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TierReport is the result of checking a product's tiers.
type TierReport struct {
	ProductID int64       `json:"productId"`
	Valid     bool        `json:"valid"`
	Issues    []TierIssue `json:"issues"`
}

// ValidateTiers reports authoring problems in tiers. It does not change how
// the resolver treats them: overlapping tiers still resolve last-wins.
func ValidateTiers(tiers []pricing.Tier) []TierIssue {
	sorted := pricing.SortTiers(tiers)
	issues := []TierIssue{}

	for _, t := range sorted {
		if t.MinQty < 1 {
			issues = append(issues, TierIssue{TierID: t.ID, Kind: IssueMinQty, Message: fmt.Sprintf("min_qty %d is below 1", t.MinQty)})
		}
		if t.MaxQty != nil && *t.MaxQty < t.MinQty {
			issues = append(issues, TierIssue{TierID: t.ID, Kind: IssueRange, Message: fmt.Sprintf("max_qty %d is below min_qty %d", *t.MaxQty, t.MinQty)})
		}
		switch {
		case t.PricePerUnit == nil && t.DiscountPercent == nil:
			issues = append(issues, TierIssue{TierID: t.ID, Kind: IssueNoRule, Message: "tier has neither price_per_unit nor discount_percent"})
		case t.PricePerUnit != nil && t.DiscountPercent != nil:
			issues = append(issues, TierIssue{TierID: t.ID, Kind: IssueBothRules, Message: "tier has both price_per_unit and discount_percent; the price wins"})
		}
		if t.PricePerUnit != nil && t.PricePerUnit.IsNegative() {
			issues = append(issues, TierIssue{TierID: t.ID, Kind: IssueNegativePrice, Message: "price_per_unit is negative"})
		}
		if t.DiscountPercent != nil && !pricing.ValidPercent(*t.DiscountPercent) {
			issues = append(issues, TierIssue{TierID: t.ID, Kind: IssuePercent, Message: "discount_percent is outside [0, 100]"})
		}
	}

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if overlaps(sorted[i], sorted[j]) {
				issues = append(issues, TierIssue{
					TierID:  sorted[i].ID,
					OtherID: sorted[j].ID,
					Kind:    IssueOverlap,
					Message: fmt.Sprintf("ranges of tiers %d and %d overlap; tier %d wins", sorted[i].ID, sorted[j].ID, sorted[j].ID),
				})
			}
		}
	}
	return issues
}

// overlaps assumes a.MinQty <= b.MinQty.
func overlaps(a, b pricing.Tier) bool {
	if a.Unbounded() {
		return true
	}
	return b.MinQty <= *a.MaxQty
}
