package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sliceline-client/pkg/config"
	"github.com/angelmondragon/sliceline-client/pkg/db/models"
	"github.com/angelmondragon/sliceline-client/pkg/types"
)

// Quote is the displayed price breakdown. The invariant is exact
// reconciliation: Subtotal - Discount + GST + RoundOff == Total.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	GST      decimal.Decimal `json:"gst"`
	RoundOff decimal.Decimal `json:"round_off"`
	Total    decimal.Decimal `json:"total"`
}

// Calculator prices carts with the configured tax rate and rounding unit.
type Calculator struct {
	gstRate     decimal.Decimal
	roundPlaces int32
}

// NewCalculator builds a Calculator from the pricing configuration.
func NewCalculator(cfg config.PricingConfig) Calculator {
	return Calculator{
		gstRate:     cfg.GSTRateDecimal(),
		roundPlaces: cfg.RoundPlaces,
	}
}

// Build computes the quote for the given lines and optional applied coupon.
// GST applies to the discounted base; the round-off line absorbs the drift so
// the displayed breakdown always sums to the displayed total.
func (c Calculator) Build(lines models.CartLines, applied *types.AppliedCoupon) Quote {
	subtotal := lines.Subtotal()

	discount := decimal.Zero
	if applied != nil {
		discount = applied.Discount
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	base := subtotal.Sub(discount)
	gst := base.Mul(c.gstRate)
	exact := base.Add(gst)
	total := exact.Round(c.roundPlaces)
	roundOff := total.Sub(exact)

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		GST:      gst,
		RoundOff: roundOff,
		Total:    total,
	}
}
