package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sliceline-client/pkg/enums"
)

// CartRecord is the durable snapshot of one owner's basket. One row per owner;
// the owner id namespaces anonymous sessions and authenticated users alike.
type CartRecord struct {
	OwnerID   string    `gorm:"column:owner_id;primaryKey"`
	Items     CartLines `gorm:"column:items;serializer:json"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName implements the gorm naming hook.
func (CartRecord) TableName() string {
	return "cart_records"
}

// CartLines is the JSON-persisted collection of cart lines, insertion order
// preserved for stable display.
type CartLines []CartLine

// CartLine is one purchasable configuration in the basket. UnitPrice is the
// price snapshot taken when the line was first added; merges keep it.
type CartLine struct {
	PizzaID   string            `json:"pizza_id"`
	Name      string            `json:"name,omitempty"`
	Size      enums.SizeVariant `json:"size"`
	Variant   string            `json:"variant,omitempty"`
	Toppings  []string          `json:"toppings,omitempty"`
	Quantity  int               `json:"quantity"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
}

// Key returns the line identity: pizza, size, variant and the topping set.
// Topping order is display-only, so the key sorts a copy before joining.
func (l CartLine) Key() string {
	toppings := append([]string(nil), l.Toppings...)
	sort.Strings(toppings)
	parts := []string{l.PizzaID, string(l.Size), l.Variant}
	parts = append(parts, toppings...)
	return strings.Join(parts, "|")
}

// LineSubtotal returns quantity times the unit price snapshot.
func (l CartLine) LineSubtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Valid reports whether a persisted line passes shape validation. Malformed
// rows loaded from disk are dropped rather than surfaced.
func (l CartLine) Valid() bool {
	if l.PizzaID == "" || l.Quantity < 1 {
		return false
	}
	if !l.Size.IsValid() {
		return false
	}
	return !l.UnitPrice.IsNegative()
}

// Subtotal sums the line subtotals.
func (c CartLines) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c {
		total = total.Add(line.LineSubtotal())
	}
	return total
}

// Clone returns a deep copy so callers can hand out immutable snapshots.
func (c CartLines) Clone() CartLines {
	if c == nil {
		return nil
	}
	out := make(CartLines, len(c))
	for i, line := range c {
		line.Toppings = append([]string(nil), line.Toppings...)
		out[i] = line
	}
	return out
}
