package cart

import (
	"context"

	"github.com/angelmondragon/sliceline-client/pkg/db/models"
)

// Adapter is the durable store behind the cart, one logical record per owner.
// Load returns (nil, nil) when no record exists; malformed stored data is
// treated the same way so a corrupt record can never brick the basket.
// Infrastructure failures surface as errors and the Store degrades to memory.
type Adapter interface {
	Load(ctx context.Context, ownerID string) (models.CartLines, error)
	Save(ctx context.Context, ownerID string, lines models.CartLines) error
	Clear(ctx context.Context, ownerID string) error
}

// dropInvalidLines removes persisted lines that fail shape validation, keeping
// insertion order for the rest.
func dropInvalidLines(lines models.CartLines) models.CartLines {
	out := lines[:0]
	for _, line := range lines {
		if line.Valid() {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
