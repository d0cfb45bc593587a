package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sliceline-client/pkg/enums"
)

// Coupon is a promotional rule fetched from the backend. The client only
// evaluates it; usage counters are server-owned.
type Coupon struct {
	ID            uuid.UUID          `json:"coupon_id"`
	Code          string             `json:"code"`
	Description   string             `json:"description,omitempty"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	MinOrderValue decimal.Decimal    `json:"min_order_value"`
	MaxDiscount   *decimal.Decimal   `json:"max_discount,omitempty"`
	UsageLimit    *int               `json:"usage_limit,omitempty"`
	TimesUsed     int                `json:"current_usage"`
	IsActive      bool               `json:"is_active"`
	UsedByMe      bool               `json:"used_by_me,omitempty"`
	ValidFrom     time.Time          `json:"valid_from"`
	ValidUntil    time.Time          `json:"valid_until"`
}

// AppliedCoupon is the at-most-one coupon attached to a cart, with the
// discount computed at application time. Replacement is full substitution.
type AppliedCoupon struct {
	Coupon   Coupon          `json:"coupon"`
	Discount decimal.Decimal `json:"discount"`
}
