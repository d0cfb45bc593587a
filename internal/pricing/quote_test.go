package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sliceline-client/pkg/config"
	"github.com/angelmondragon/sliceline-client/pkg/db/models"
	"github.com/angelmondragon/sliceline-client/pkg/enums"
	"github.com/angelmondragon/sliceline-client/pkg/types"
)

func testLines(prices ...float64) models.CartLines {
	lines := make(models.CartLines, 0, len(prices))
	for i, p := range prices {
		lines = append(lines, models.CartLine{
			PizzaID:   "pizza",
			Size:      enums.SizeVariantMedium,
			Quantity:  i + 1,
			UnitPrice: decimal.NewFromFloat(p),
		})
	}
	return lines
}

func TestBuildQuoteReconciles(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.PricingConfig{GSTRate: "0.10", RoundPlaces: 0})
	lines := models.CartLines{
		{PizzaID: "margherita", Size: enums.SizeVariantMedium, Quantity: 3, UnitPrice: decimal.NewFromFloat(10.45)},
	}

	quote := calc.Build(lines, nil)

	sum := quote.Subtotal.Sub(quote.Discount).Add(quote.GST).Add(quote.RoundOff)
	if !sum.Equal(quote.Total) {
		t.Fatalf("breakdown does not reconcile: %s != %s", sum, quote.Total)
	}
	if quote.Total.Exponent() < 0 {
		t.Fatalf("whole-unit rounding expected, got %s", quote.Total)
	}
}

func TestBuildQuoteAppliesDiscountBeforeTax(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.PricingConfig{GSTRate: "0.10", RoundPlaces: 2})
	lines := models.CartLines{
		{PizzaID: "margherita", Size: enums.SizeVariantLarge, Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
	}
	applied := &types.AppliedCoupon{Discount: decimal.NewFromInt(20)}

	quote := calc.Build(lines, applied)

	if !quote.GST.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected GST on discounted base (8), got %s", quote.GST)
	}
	if !quote.Total.Equal(decimal.NewFromInt(88)) {
		t.Fatalf("expected total 88, got %s", quote.Total)
	}
}

func TestBuildQuoteClampsOverlargeDiscount(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.PricingConfig{GSTRate: "0.05", RoundPlaces: 2})
	lines := testLines(5)
	applied := &types.AppliedCoupon{Discount: decimal.NewFromInt(999)}

	quote := calc.Build(lines, applied)

	if !quote.Discount.Equal(quote.Subtotal) {
		t.Fatalf("discount should clamp to subtotal, got %s", quote.Discount)
	}
	if quote.Total.IsNegative() {
		t.Fatalf("total must never go negative, got %s", quote.Total)
	}
}

func TestBuildQuoteEmptyCart(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.PricingConfig{GSTRate: "0.10", RoundPlaces: 0})
	quote := calc.Build(nil, nil)

	if !quote.Total.IsZero() || !quote.Subtotal.IsZero() {
		t.Fatalf("empty cart should quote zero, got %+v", quote)
	}
}
