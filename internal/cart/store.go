package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/sliceline-client/internal/identity"
	"github.com/angelmondragon/sliceline-client/internal/pricing"
	"github.com/angelmondragon/sliceline-client/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/logger"
	"github.com/angelmondragon/sliceline-client/pkg/metrics"
	"github.com/angelmondragon/sliceline-client/pkg/types"
)

// Snapshot is the immutable view handed to readers after every mutation.
type Snapshot struct {
	OwnerID string
	Items   models.CartLines
	Applied *types.AppliedCoupon
	Quote   pricing.Quote
	// CouponNotice carries the user-visible reason when re-validation dropped
	// the applied coupon during the mutation that produced this snapshot.
	CouponNotice error
}

// Store owns the basket for the current owner. Every mutation goes through one
// mutex-serialized apply path: mutate, re-validate the coupon, persist, notify.
// A later mutation is not accepted until the previous one has persisted, which
// keeps call order and storage order identical.
type Store struct {
	adapter Adapter
	calc    pricing.Calculator
	logg    *logger.Logger
	metrics *metrics.ClientMetrics
	now     func() time.Time

	mu          sync.Mutex
	ownerID     string
	lines       models.CartLines
	applied     *types.AppliedCoupon
	subscribers map[int]chan Snapshot
	nextSubID   int
}

func NewStore(adapter Adapter, calc pricing.Calculator, logg *logger.Logger, m *metrics.ClientMetrics) (*Store, error) {
	if adapter == nil {
		return nil, fmt.Errorf("cart adapter required")
	}
	return &Store{
		adapter:     adapter,
		calc:        calc,
		logg:        logg,
		metrics:     m,
		now:         time.Now,
		ownerID:     identity.OwnerAnonymous,
		subscribers: map[int]chan Snapshot{},
	}, nil
}

// Subscribe registers a reader. The channel is buffered; when a slow reader
// falls behind, older snapshots are discarded in favor of the newest one.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 8)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Snapshot returns the current view without mutating anything.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(nil)
}

// Hydrate loads the persisted basket for the current owner, replacing the
// in-memory lines. Called once at startup, before any mutation.
func (s *Store) Hydrate(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.adapter.Load(ctx, s.ownerID)
	if err != nil {
		s.degrade(ctx, "load", err)
		lines = nil
	}
	s.lines = lines
	notice := s.revalidateCouponLocked()

	snap := s.snapshotLocked(notice)
	s.notifyLocked(snap)
	return snap, nil
}

// AddItem merges the line into the basket. A line with the same identity key
// absorbs the quantity and keeps its original unit price snapshot; otherwise
// the line is appended, preserving insertion order.
func (s *Store) AddItem(ctx context.Context, line models.CartLine) (Snapshot, error) {
	if line.PizzaID == "" {
		return s.Snapshot(), pkgerrors.New(pkgerrors.CodeValidation, "pizza id is required")
	}
	if !line.Size.IsValid() {
		return s.Snapshot(), pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid size %q", line.Size))
	}
	if line.Quantity < 1 {
		return s.Snapshot(), pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if line.UnitPrice.IsNegative() {
		return s.Snapshot(), pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}

	return s.apply(ctx, func() {
		key := line.Key()
		for i := range s.lines {
			if s.lines[i].Key() == key {
				s.lines[i].Quantity += line.Quantity
				return
			}
		}
		line.Toppings = append([]string(nil), line.Toppings...)
		s.lines = append(s.lines, line)
	})
}

// RemoveLine drops the line with the given identity key, regardless of
// quantity. Removing an absent line is a no-op.
func (s *Store) RemoveLine(ctx context.Context, key string) (Snapshot, error) {
	return s.apply(ctx, func() {
		s.lines = deleteLines(s.lines, func(l models.CartLine) bool { return l.Key() == key })
	})
}

// RemovePizza drops every line for the given pizza, matching the coarser
// removal the cart page exposes.
func (s *Store) RemovePizza(ctx context.Context, pizzaID string) (Snapshot, error) {
	return s.apply(ctx, func() {
		s.lines = deleteLines(s.lines, func(l models.CartLine) bool { return l.PizzaID == pizzaID })
	})
}

// UpdateQuantity replaces the quantity of the line with the given identity
// key. Zero or negative behaves as removal.
func (s *Store) UpdateQuantity(ctx context.Context, key string, quantity int) (Snapshot, error) {
	if quantity <= 0 {
		return s.RemoveLine(ctx, key)
	}
	return s.apply(ctx, func() {
		for i := range s.lines {
			if s.lines[i].Key() == key {
				s.lines[i].Quantity = quantity
				return
			}
		}
	})
}

// ClearCart empties the basket and deletes the persisted record, so the next
// session starts from nothing rather than an empty leftover row.
func (s *Store) ClearCart(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.applied = nil
	if err := s.adapter.Clear(ctx, s.ownerID); err != nil {
		s.degrade(ctx, "clear", err)
	}

	snap := s.snapshotLocked(nil)
	s.notifyLocked(snap)
	return snap, nil
}

// SwitchOwner swaps the visible basket when the subject changes. An empty
// owner id means logout: the live view empties but per-user storage stays
// retrievable for when that owner returns. Any applied coupon is dropped
// either way; it belonged to the previous subject's basket.
func (s *Store) SwitchOwner(ctx context.Context, ownerID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ownerID == "" {
		s.ownerID = identity.OwnerAnonymous
		s.lines = nil
		s.applied = nil
		snap := s.snapshotLocked(nil)
		s.notifyLocked(snap)
		return snap, nil
	}

	if ownerID == s.ownerID {
		return s.snapshotLocked(nil), nil
	}

	s.ownerID = ownerID
	s.applied = nil
	lines, err := s.adapter.Load(ctx, ownerID)
	if err != nil {
		s.degrade(ctx, "load", err)
		lines = nil
	}
	s.lines = lines

	snap := s.snapshotLocked(nil)
	s.notifyLocked(snap)
	return snap, nil
}

// ApplyCoupon evaluates and attaches the coupon. At most one coupon is active;
// applying another replaces it entirely.
func (s *Store) ApplyCoupon(ctx context.Context, coupon types.Coupon) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	discount, err := pricing.EvaluateCoupon(s.lines.Subtotal(), coupon, s.now())
	if err != nil {
		s.metrics.IncCouponRejection(pricing.RejectionReason(err))
		return s.snapshotLocked(nil), err
	}

	s.applied = &types.AppliedCoupon{Coupon: coupon, Discount: discount}
	snap := s.snapshotLocked(nil)
	s.notifyLocked(snap)
	return snap, nil
}

// RemoveCoupon detaches the applied coupon, if any.
func (s *Store) RemoveCoupon(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applied = nil
	snap := s.snapshotLocked(nil)
	s.notifyLocked(snap)
	return snap
}

// apply is the single serialized mutation path for item edits.
func (s *Store) apply(ctx context.Context, mutate func()) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate()
	notice := s.revalidateCouponLocked()

	if err := s.adapter.Save(ctx, s.ownerID, s.lines); err != nil {
		s.degrade(ctx, "save", err)
	}

	snap := s.snapshotLocked(notice)
	s.notifyLocked(snap)
	return snap, nil
}

// revalidateCouponLocked re-runs the discount engine after the subtotal moved.
// A coupon that no longer qualifies is cleared and the reason surfaced, never
// silently dropped.
func (s *Store) revalidateCouponLocked() error {
	if s.applied == nil {
		return nil
	}
	discount, err := pricing.EvaluateCoupon(s.lines.Subtotal(), s.applied.Coupon, s.now())
	if err != nil {
		s.metrics.IncCouponRejection(pricing.RejectionReason(err))
		s.applied = nil
		return err
	}
	s.applied.Discount = discount
	return nil
}

// degrade records a persistence failure and keeps the in-memory basket alive.
func (s *Store) degrade(ctx context.Context, op string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, "cart persistence degraded to memory", err)
	}
	s.metrics.IncPersistenceFailure(op)
}

func (s *Store) snapshotLocked(notice error) Snapshot {
	var applied *types.AppliedCoupon
	if s.applied != nil {
		copied := *s.applied
		applied = &copied
	}
	return Snapshot{
		OwnerID:      s.ownerID,
		Items:        s.lines.Clone(),
		Applied:      applied,
		Quote:        s.calc.Build(s.lines, s.applied),
		CouponNotice: notice,
	}
}

func (s *Store) notifyLocked(snap Snapshot) {
	for _, ch := range s.subscribers {
		for {
			select {
			case ch <- snap:
			default:
				// Full buffer: discard the oldest snapshot and retry so the
				// reader always ends up with the newest state.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func deleteLines(lines models.CartLines, match func(models.CartLine) bool) models.CartLines {
	out := lines[:0]
	for _, line := range lines {
		if !match(line) {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
