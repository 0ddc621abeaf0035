package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/common"
)

func intPtr(v int) *int { return &v }

func moneyPtr(v string) *Money {
	m := MustMoney(v)
	return &m
}

func businessCardTiers() []Tier {
	return []Tier{
		{ID: 4, MinQty: 1000, PricePerUnit: moneyPtr("3.5")},
		{ID: 1, MinQty: 1, MaxQty: intPtr(99), PricePerUnit: moneyPtr("12.0")},
		{ID: 3, MinQty: 500, MaxQty: intPtr(999), PricePerUnit: moneyPtr("4.5")},
		{ID: 2, MinQty: 100, MaxQty: intPtr(499), PricePerUnit: moneyPtr("7.0")},
	}
}

func TestResolveUnitPriceTierBoundaries(t *testing.T) {
	product := Product{ID: 1, BasePrice: MustMoney("12.0")}
	cases := []struct {
		qty  int
		want string
	}{
		{1, "12"},
		{99, "12"},
		{100, "7"},
		{499, "7"},
		{500, "4.5"},
		{999, "4.5"},
		{1000, "3.5"},
		{250000, "3.5"},
	}
	for _, tc := range cases {
		quote, err := ResolveUnitPrice(product, businessCardTiers(), tc.qty)
		if err != nil {
			t.Fatalf("qty %d: unexpected error %v", tc.qty, err)
		}
		if !quote.UnitPrice.Equal(MustMoney(tc.want)) {
			t.Fatalf("qty %d: expected unit price %s, got %s", tc.qty, tc.want, quote.UnitPrice)
		}
		if !quote.DiscountPercent.IsZero() {
			t.Fatalf("qty %d: expected zero discount, got %s", tc.qty, quote.DiscountPercent)
		}
	}
}

func TestResolveUnitPriceDiscountTier(t *testing.T) {
	product := Product{ID: 7, BasePrice: MustMoney("1200")}
	tiers := []Tier{{ID: 9, MinQty: 10, MaxQty: intPtr(29), DiscountPercent: moneyPtr("5")}}

	quote, err := ResolveUnitPrice(product, tiers, 15)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !quote.UnitPrice.Equal(MustMoney("1140")) {
		t.Fatalf("expected 1140, got %s", quote.UnitPrice)
	}
	if !quote.DiscountPercent.Equal(MustMoney("5")) {
		t.Fatalf("expected 5%% discount, got %s", quote.DiscountPercent)
	}
	if quote.TierID == nil || *quote.TierID != 9 {
		t.Fatalf("expected tier 9 to match, got %v", quote.TierID)
	}

	outside, err := ResolveUnitPrice(product, tiers, 30)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !outside.UnitPrice.Equal(MustMoney("1200")) || !outside.DiscountPercent.IsZero() || outside.TierID != nil {
		t.Fatalf("expected base price fallback, got %+v", outside)
	}
}

func TestResolveUnitPriceNoTiers(t *testing.T) {
	product := Product{BasePrice: MustMoney("42.10")}
	quote, err := ResolveUnitPrice(product, nil, 3)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !quote.UnitPrice.Equal(product.BasePrice) || !quote.DiscountPercent.IsZero() {
		t.Fatalf("expected base price and zero discount, got %+v", quote)
	}
}

func TestResolveUnitPriceLastOverlapWins(t *testing.T) {
	product := Product{BasePrice: MustMoney("100")}
	tiers := []Tier{
		{ID: 1, MinQty: 1, PricePerUnit: moneyPtr("90")},
		{ID: 2, MinQty: 10, MaxQty: intPtr(20), DiscountPercent: moneyPtr("25")},
		{ID: 3, MinQty: 10, MaxQty: intPtr(50), PricePerUnit: moneyPtr("70")},
	}
	quote, err := ResolveUnitPrice(product, tiers, 15)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !quote.UnitPrice.Equal(MustMoney("70")) || !quote.DiscountPercent.IsZero() {
		t.Fatalf("expected last matching price tier to win, got %+v", quote)
	}
	if *quote.TierID != 3 {
		t.Fatalf("expected tier 3, got %d", *quote.TierID)
	}
}

func TestResolveUnitPriceRejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int{0, -5} {
		_, err := ResolveUnitPrice(Product{BasePrice: MustMoney("1")}, nil, qty)
		if !errors.Is(err, ErrInvalidQuantity) || !errors.Is(err, common.ErrInvalidArgument) {
			t.Fatalf("qty %d: expected invalid argument, got %v", qty, err)
		}
	}
}

func TestResolveUnitPriceRejectsMisconfiguredTier(t *testing.T) {
	product := Product{BasePrice: MustMoney("5")}
	tiers := []Tier{
		{ID: 31, MinQty: 1, MaxQty: intPtr(100), PricePerUnit: moneyPtr("4")},
		{ID: 32, MinQty: 50, DiscountPercent: moneyPtr("150")},
		{ID: 33, MinQty: 500, PricePerUnit: moneyPtr("-2")},
	}
	quote, err := ResolveUnitPrice(product, tiers, 10)
	if err != nil {
		t.Fatalf("non-matching bad tiers must not fail: %v", err)
	}
	if !quote.UnitPrice.Equal(MustMoney("4")) {
		t.Fatalf("expected 4, got %s", quote.UnitPrice)
	}
	for _, qty := range []int{60, 600} {
		_, err := ResolveUnitPrice(product, tiers, qty)
		if !errors.Is(err, ErrInvalidTier) || !errors.Is(err, common.ErrInvalidState) {
			t.Fatalf("qty %d: expected invalid tier, got %v", qty, err)
		}
	}
}

func TestComputeLine(t *testing.T) {
	manual := MustMoney("500")
	huge := MustMoney("99999")
	cases := []struct {
		name     string
		in       LineInput
		base     string
		discount string
		total    string
	}{
		{"plain", LineInput{Quantity: 3, UnitPrice: MustMoney("10.50")}, "31.5", "0", "31.5"},
		{"percent", LineInput{Quantity: 15, UnitPrice: MustMoney("1140"), DiscountPercent: MustMoney("5")}, "17100", "855", "16245"},
		{"manual overrides percent", LineInput{Quantity: 2, UnitPrice: MustMoney("1000"), DiscountPercent: MustMoney("10"), ManualDiscount: &manual}, "2000", "500", "1500"},
		{"clamped", LineInput{Quantity: 1, UnitPrice: MustMoney("10"), ManualDiscount: &huge}, "10", "99999", "0"},
		{"fractional unit", LineInput{Quantity: 3, UnitPrice: MustMoney("0.3333")}, "1", "0", "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeLine(tc.in)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !got.Base.Equal(MustMoney(tc.base)) || !got.DiscountValue.Equal(MustMoney(tc.discount)) || !got.Total.Equal(MustMoney(tc.total)) {
				t.Fatalf("expected %s/%s/%s, got %s/%s/%s", tc.base, tc.discount, tc.total, got.Base, got.DiscountValue, got.Total)
			}
		})
	}
}

func TestComputeLineValidation(t *testing.T) {
	negative := MustMoney("-1")
	cases := []LineInput{
		{Quantity: 0, UnitPrice: MustMoney("1")},
		{Quantity: 1, UnitPrice: MustMoney("-1")},
		{Quantity: 1, UnitPrice: MustMoney("1"), ManualDiscount: &negative},
		{Quantity: 1, UnitPrice: MustMoney("1"), DiscountPercent: MustMoney("101")},
	}
	for i, in := range cases {
		if _, err := ComputeLine(in); !errors.Is(err, common.ErrInvalidArgument) {
			t.Fatalf("case %d: expected invalid argument, got %v", i, err)
		}
	}
}

func TestComputeOrderTotals(t *testing.T) {
	lines := []Money{MustMoney("1000"), MustMoney("250.50")}

	plain := Compute(lines, NoDiscount())
	if !plain.Subtotal.Equal(MustMoney("1250.5")) || !plain.PayableTotal.Equal(plain.Subtotal) {
		t.Fatalf("unexpected summary %+v", plain)
	}

	percent := Compute(lines, PercentDiscount(MustMoney("10")))
	if !percent.DiscountValue.Equal(MustMoney("125.05")) || !percent.PayableTotal.Equal(MustMoney("1125.45")) {
		t.Fatalf("unexpected percent summary %+v", percent)
	}

	scaled := Compute(append(lines, MustMoney("749.50")), PercentDiscount(MustMoney("10")))
	if !scaled.DiscountValue.Equal(MustMoney("200")) {
		t.Fatalf("expected percent discount to scale with subtotal, got %s", scaled.DiscountValue)
	}

	fixed := Compute(append(lines, MustMoney("749.50")), ValueDiscount(MustMoney("100")))
	if !fixed.DiscountValue.Equal(MustMoney("100")) || !fixed.PayableTotal.Equal(MustMoney("1900")) {
		t.Fatalf("expected fixed discount, got %+v", fixed)
	}

	capped := Compute(lines, ValueDiscount(MustMoney("5000")))
	if !capped.PayableTotal.IsZero() || !capped.DiscountValue.Equal(capped.Subtotal) {
		t.Fatalf("expected discount capped at subtotal, got %+v", capped)
	}

	empty := Compute(nil, PercentDiscount(MustMoney("50")))
	if !empty.Subtotal.IsZero() || !empty.PayableTotal.IsZero() || !empty.DiscountValue.IsZero() {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	lines := []Money{MustMoney("333.33"), MustMoney("333.33"), MustMoney("333.34")}
	discount := PercentDiscount(MustMoney("7.5"))
	first := Compute(lines, discount)
	for i := 0; i < 5; i++ {
		again := Compute(lines, discount)
		if !again.PayableTotal.Equal(first.PayableTotal) || !again.Subtotal.Equal(first.Subtotal) {
			t.Fatalf("iteration %d drifted: %+v vs %+v", i, again, first)
		}
	}
	if !first.Subtotal.Add(decimal.Zero).Equal(MustMoney("1000")) {
		t.Fatalf("unexpected subtotal %s", first.Subtotal)
	}
}

func TestDiscountValidate(t *testing.T) {
	if err := PercentDiscount(MustMoney("120")).Validate(); !errors.Is(err, ErrPercentOutOfRange) {
		t.Fatalf("expected percent range error, got %v", err)
	}
	if err := ValueDiscount(MustMoney("-3")).Validate(); !errors.Is(err, ErrNegativeDiscount) {
		t.Fatalf("expected negative discount error, got %v", err)
	}
	if err := (Discount{Kind: "coupon"}).Validate(); !errors.Is(err, ErrUnknownDiscountKind) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if kind, ok := ParseDiscountKind(" Percent "); !ok || kind != DiscountPercent {
		t.Fatalf("expected percent kind, got %q %v", kind, ok)
	}
}
