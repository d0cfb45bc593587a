package backend

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sliceline-client/pkg/enums"
)

// Pizza is a catalog entry as served by GET /pizzas.
type Pizza struct {
	ID          string          `json:"pizza_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	ImageURL    string          `json:"image_url,omitempty"`
	Available   bool            `json:"is_available"`
}

// Topping is an add-on entry as served by GET /toppings.
type Topping struct {
	ID        string          `json:"topping_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"is_available"`
}

// OrderItemInput is one line of an order submission.
type OrderItemInput struct {
	PizzaID   string            `json:"pizza_id" validate:"required"`
	Size      enums.SizeVariant `json:"size" validate:"required"`
	Variant   string            `json:"variant,omitempty"`
	Toppings  []string          `json:"toppings,omitempty"`
	Quantity  int               `json:"quantity" validate:"gte=1"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
}

// CreateOrderInput is the POST /orders payload.
type CreateOrderInput struct {
	OrderItems      []OrderItemInput    `json:"order_items" validate:"required,min=1,dive"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method" validate:"required"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	DeliveryAddress string              `json:"delivery_address" validate:"required"`
	ContactNumber   string              `json:"contact_number" validate:"required"`
	Notes           string              `json:"notes,omitempty"`
	CouponCode      string              `json:"coupon_code,omitempty"`
}

// Order is the server's view of a placed order.
type Order struct {
	ID          string            `json:"order_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
