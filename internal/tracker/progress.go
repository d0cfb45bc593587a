package tracker

import (
	"sync"

	"github.com/angelmondragon/sliceline-client/pkg/enums"
)

// progress holds the displayed status per order under the monotonic-advance
// rule: a status only replaces the current one when it is strictly later in
// the fixed progression. Duplicates and re-ordered deliveries fall out as
// no-ops, so connection churn can never rewind the display.
type progress struct {
	mu       sync.Mutex
	statuses map[string]enums.OrderStatus
}

func newProgress() *progress {
	return &progress{statuses: map[string]enums.OrderStatus{}}
}

// Advance applies the incoming status and returns the status to display plus
// whether the display changed.
func (p *progress) Advance(orderID string, status enums.OrderStatus) (enums.OrderStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, seen := p.statuses[orderID]
	if seen && !status.After(current) {
		return current, false
	}
	p.statuses[orderID] = status
	return status, true
}

// Current returns the displayed status for an order, if any.
func (p *progress) Current(orderID string) (enums.OrderStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status, ok := p.statuses[orderID]
	return status, ok
}
