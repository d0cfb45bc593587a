package enums

import "fmt"

// OrderStatus tracks the kitchen-side lifecycle of a placed order.
type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusBaking    OrderStatus = "baking"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
)

// orderStatusRanks fixes the total order of the progression. Higher rank wins.
var orderStatusRanks = map[OrderStatus]int{
	OrderStatusReceived:  0,
	OrderStatusPreparing: 1,
	OrderStatusBaking:    2,
	OrderStatusReady:     3,
	OrderStatusDelivered: 4,
}

var validOrderStatuses = []OrderStatus{
	OrderStatusReceived,
	OrderStatusPreparing,
	OrderStatusBaking,
	OrderStatusReady,
	OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	_, ok := orderStatusRanks[o]
	return ok
}

// Rank returns the position of the status in the fixed progression, -1 when unknown.
func (o OrderStatus) Rank() int {
	if rank, ok := orderStatusRanks[o]; ok {
		return rank
	}
	return -1
}

// IsTerminal reports whether no further transitions are expected after this status.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered
}

// After reports whether o is strictly later than other in the progression.
func (o OrderStatus) After(other OrderStatus) bool {
	return o.Rank() > other.Rank()
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
