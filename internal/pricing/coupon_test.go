package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/enums"
	"github.com/angelmondragon/sliceline-client/pkg/types"
)

var evalNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func activeCoupon(discountType enums.DiscountType, value int64) types.Coupon {
	return types.Coupon{
		Code:          "SAVE",
		DiscountType:  discountType,
		DiscountValue: decimal.NewFromInt(value),
		IsActive:      true,
		ValidFrom:     evalNow.Add(-24 * time.Hour),
		ValidUntil:    evalNow.Add(24 * time.Hour),
	}
}

func TestEvaluateCouponPercentageCapped(t *testing.T) {
	t.Parallel()

	coupon := activeCoupon(enums.DiscountTypePercentage, 10)
	cap := decimal.NewFromInt(40)
	coupon.MaxDiscount = &cap

	discount, err := EvaluateCoupon(decimal.NewFromInt(500), coupon, evalNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !discount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected capped discount 40, got %s", discount)
	}
}

func TestEvaluateCouponPercentageUncapped(t *testing.T) {
	t.Parallel()

	discount, err := EvaluateCoupon(decimal.NewFromInt(200), activeCoupon(enums.DiscountTypePercentage, 10), evalNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !discount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected discount 20, got %s", discount)
	}
}

func TestEvaluateCouponFixedClampedToSubtotal(t *testing.T) {
	t.Parallel()

	discount, err := EvaluateCoupon(decimal.NewFromInt(30), activeCoupon(enums.DiscountTypeFixed, 50), evalNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !discount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("discount must not exceed subtotal, got %s", discount)
	}
}

func TestEvaluateCouponBelowMinimum(t *testing.T) {
	t.Parallel()

	coupon := activeCoupon(enums.DiscountTypeFixed, 50)
	coupon.MinOrderValue = decimal.NewFromInt(300)

	discount, err := EvaluateCoupon(decimal.NewFromInt(100), coupon, evalNow)
	if err == nil {
		t.Fatal("expected error for subtotal below minimum")
	}
	if !discount.IsZero() {
		t.Fatalf("expected zero discount, got %s", discount)
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeCouponInvalid) {
		t.Fatalf("unexpected error code: %v", err)
	}
	if RejectionReason(err) != ReasonBelowMinimum {
		t.Fatalf("unexpected reason: %q", RejectionReason(err))
	}
}

func TestEvaluateCouponUsageExhausted(t *testing.T) {
	t.Parallel()

	coupon := activeCoupon(enums.DiscountTypeFixed, 10)
	limit := 3
	coupon.UsageLimit = &limit
	coupon.TimesUsed = 3

	if _, err := EvaluateCoupon(decimal.NewFromInt(100), coupon, evalNow); RejectionReason(err) != ReasonUsageExceeded {
		t.Fatalf("expected usage exceeded, got %v", err)
	}
}

func TestEvaluateCouponWindowAndActivity(t *testing.T) {
	t.Parallel()

	expired := activeCoupon(enums.DiscountTypeFixed, 10)
	expired.ValidUntil = evalNow.Add(-time.Hour)
	if _, err := EvaluateCoupon(decimal.NewFromInt(100), expired, evalNow); RejectionReason(err) != ReasonExpired {
		t.Fatalf("expected expired rejection, got %v", err)
	}

	inactive := activeCoupon(enums.DiscountTypeFixed, 10)
	inactive.IsActive = false
	if _, err := EvaluateCoupon(decimal.NewFromInt(100), inactive, evalNow); RejectionReason(err) != ReasonInactive {
		t.Fatalf("expected inactive rejection, got %v", err)
	}

	used := activeCoupon(enums.DiscountTypeFixed, 10)
	used.UsedByMe = true
	if _, err := EvaluateCoupon(decimal.NewFromInt(100), used, evalNow); RejectionReason(err) != ReasonAlreadyUsed {
		t.Fatalf("expected already-used rejection, got %v", err)
	}
}

func TestEvaluateCouponUnknownType(t *testing.T) {
	t.Parallel()

	coupon := activeCoupon(enums.DiscountType("BOGO"), 10)
	if _, err := EvaluateCoupon(decimal.NewFromInt(100), coupon, evalNow); RejectionReason(err) != ReasonBadType {
		t.Fatalf("expected bad type rejection, got %v", err)
	}
}
