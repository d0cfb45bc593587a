package cart

import (
	"github.com/angelmondragon/sliceline-client/internal/backend"
	"github.com/angelmondragon/sliceline-client/pkg/enums"
)

// CheckoutInput carries the collaborator-supplied fields of an order
// submission; everything else comes from the basket itself.
type CheckoutInput struct {
	PaymentMethod   enums.PaymentMethod
	DeliveryAddress string
	ContactNumber   string
	Notes           string
}

// CheckoutPayload renders the current basket into the POST /orders payload.
// The caller submits it and clears the cart only after the backend confirms,
// so a rejected order never loses the basket.
func (s *Store) CheckoutPayload(input CheckoutInput) backend.CreateOrderInput {
	snap := s.Snapshot()

	items := make([]backend.OrderItemInput, 0, len(snap.Items))
	for _, line := range snap.Items {
		items = append(items, backend.OrderItemInput{
			PizzaID:   line.PizzaID,
			Size:      line.Size,
			Variant:   line.Variant,
			Toppings:  append([]string(nil), line.Toppings...),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	payload := backend.CreateOrderInput{
		OrderItems:      items,
		PaymentMethod:   input.PaymentMethod,
		TotalAmount:     snap.Quote.Total,
		DeliveryAddress: input.DeliveryAddress,
		ContactNumber:   input.ContactNumber,
		Notes:           input.Notes,
	}
	if snap.Applied != nil {
		payload.CouponCode = snap.Applied.Coupon.Code
	}
	return payload
}
