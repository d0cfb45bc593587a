package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/enums"
	"github.com/angelmondragon/sliceline-client/pkg/types"
)

// Rejection reasons attached to coupon errors so callers can label metrics
// without parsing messages.
const (
	ReasonInactive      = "inactive"
	ReasonExpired       = "expired"
	ReasonAlreadyUsed   = "already_used"
	ReasonUsageExceeded = "usage_exceeded"
	ReasonBelowMinimum  = "below_minimum"
	ReasonBadType       = "bad_discount_type"
)

var oneHundred = decimal.NewFromInt(100)

// EvaluateCoupon validates coupon against the cart subtotal and prices the
// discount. It never mutates the coupon; usage accounting is server-owned.
func EvaluateCoupon(subtotal decimal.Decimal, coupon types.Coupon, now time.Time) (decimal.Decimal, error) {
	if !coupon.IsActive {
		return decimal.Zero, rejection(ReasonInactive, "coupon is not active")
	}
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return decimal.Zero, rejection(ReasonExpired, "coupon is outside its validity window")
	}
	if coupon.UsedByMe {
		return decimal.Zero, rejection(ReasonAlreadyUsed, "coupon already used")
	}
	if coupon.UsageLimit != nil && coupon.TimesUsed >= *coupon.UsageLimit {
		return decimal.Zero, rejection(ReasonUsageExceeded, "coupon usage limit reached")
	}
	if subtotal.LessThan(coupon.MinOrderValue) {
		return decimal.Zero, rejection(ReasonBelowMinimum,
			fmt.Sprintf("minimum order of %s required", coupon.MinOrderValue.StringFixed(2)))
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(oneHundred)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case enums.DiscountTypeFixed:
		discount = coupon.DiscountValue
	default:
		return decimal.Zero, rejection(ReasonBadType,
			fmt.Sprintf("unknown discount type %q", coupon.DiscountType))
	}

	// A discount can never exceed the order value.
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount, nil
}

// RejectionReason extracts the machine-readable reason from a coupon error,
// empty for other errors.
func RejectionReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCouponInvalid {
		return ""
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		return ""
	}
	return details["reason"]
}

func rejection(reason, message string) error {
	return pkgerrors.New(pkgerrors.CodeCouponInvalid, message).
		WithDetails(map[string]string{"reason": reason})
}
