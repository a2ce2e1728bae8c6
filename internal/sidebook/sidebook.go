// Package sidebook implements the ordered price->PriceLevel map for one side
// of the book: a side-dependent less-function passed straight to
// btree.NewBTreeG, wrapped with running aggregates over every resting order
// on that side. No separate best-price cache is kept.
package sidebook

import (
	"github.com/tidwall/btree"

	"glacier/internal/pricelevel"
	"glacier/internal/types"
)

// entry is the btree element: a price plus its level. The tree never holds
// two entries with equal Price (SideBook invariant 3).
type entry struct {
	price types.Price
	level *pricelevel.PriceLevel
}

// SideBook is one side (bids or asks) of the book: a sorted price->level map
// plus running aggregates over every resting order on this side. The best
// price is not cached; it is read from the tree's minimum on each call.
type SideBook struct {
	side types.Side
	tree *btree.BTreeG[entry]

	totalVisible types.Quantity
	levelCount   int
}

// New returns an empty SideBook for the given side. Bids sort descending by
// price (best = highest); asks sort ascending (best = lowest) — invariant 1.
func New(side types.Side) *SideBook {
	var less func(a, b entry) bool
	if side == types.Buy {
		less = func(a, b entry) bool { return a.price.GreaterThan(b.price) }
	} else {
		less = func(a, b entry) bool { return a.price.LessThan(b.price) }
	}
	return &SideBook{
		side: side,
		tree: btree.NewBTreeG(less),
	}
}

func (s *SideBook) Side() types.Side                  { return s.side }
func (s *SideBook) LevelCount() int                    { return s.levelCount }
func (s *SideBook) TotalVisibleQuantity() types.Quantity { return s.totalVisible }
func (s *SideBook) Empty() bool                        { return s.levelCount == 0 }

// BestPrice returns the best resting price and true, or the zero Price and
// false if the side is empty. It reads the tree's Min on every call, a
// descent to the leftmost leaf (logarithmic in the number of levels), not
// an O(1) cached lookup.
func (s *SideBook) BestPrice() (types.Price, bool) {
	e, ok := s.tree.Min()
	if !ok {
		return types.Price{}, false
	}
	return e.price, true
}

// BestLevel returns the level at the best price, or nil if empty.
func (s *SideBook) BestLevel() *pricelevel.PriceLevel {
	e, ok := s.tree.Min()
	if !ok {
		return nil
	}
	return e.level
}

// LevelAt returns the level resting at price, or nil if no level exists
// there.
func (s *SideBook) LevelAt(price types.Price) *pricelevel.PriceLevel {
	e, ok := s.tree.Get(entry{price: price})
	if !ok {
		return nil
	}
	return e.level
}

// GetOrCreate returns the level at price, creating and inserting an empty
// one if none exists yet.
func (s *SideBook) GetOrCreate(price types.Price) *pricelevel.PriceLevel {
	if lvl := s.LevelAt(price); lvl != nil {
		return lvl
	}
	lvl := pricelevel.New(price)
	s.tree.Set(entry{price: price, level: lvl})
	s.levelCount++
	return lvl
}

// NoteAdded updates the side's running visible-quantity aggregate after an
// order has been added to one of this side's levels.
func (s *SideBook) NoteAdded(qty types.Quantity) { s.totalVisible += qty }

// NoteRemoved updates the side's running visible-quantity aggregate after
// quantity has left one of this side's levels (fill or cancel).
func (s *SideBook) NoteRemoved(qty types.Quantity) { s.totalVisible -= qty }

// PruneIfEmpty removes the level at price from the tree if it has gone
// empty (PriceLevel invariant 4 / SideBook per-price state machine
// Active -> Absent).
func (s *SideBook) PruneIfEmpty(price types.Price) {
	lvl := s.LevelAt(price)
	if lvl == nil || !lvl.Empty() {
		return
	}
	s.tree.Delete(entry{price: price})
	s.levelCount--
}

// TopNLevels returns up to n levels in priority order (best first).
func (s *SideBook) TopNLevels(n int) []*pricelevel.PriceLevel {
	out := make([]*pricelevel.PriceLevel, 0, n)
	s.tree.Scan(func(e entry) bool {
		if len(out) >= n {
			return false
		}
		out = append(out, e.level)
		return true
	})
	return out
}

// IterFromBest calls fn for every level in priority order until fn returns
// false. It is allocation-free beyond the closure itself.
func (s *SideBook) IterFromBest(fn func(*pricelevel.PriceLevel) bool) {
	s.tree.Scan(func(e entry) bool {
		return fn(e.level)
	})
}

// IterRange calls fn for every level whose price lies within [lo, hi]
// (inclusive), in priority order.
func (s *SideBook) IterRange(lo, hi types.Price, fn func(*pricelevel.PriceLevel) bool) {
	s.tree.Scan(func(e entry) bool {
		if e.price.LessThan(lo) || e.price.GreaterThan(hi) {
			// Still need to continue scanning since priority order is not
			// numeric order for bids; cheaper to filter than to re-seek.
			return true
		}
		return fn(e.level)
	})
}

// TotalDepthAtLevels sums the total (visible) quantity across the top n
// levels.
func (s *SideBook) TotalDepthAtLevels(n int) types.Quantity {
	var total types.Quantity
	count := 0
	s.tree.Scan(func(e entry) bool {
		if count >= n {
			return false
		}
		total += e.level.TotalVisible()
		count++
		return true
	})
	return total
}

// PriceAtDepth returns the price of the level at which the cumulative
// visible quantity first reaches targetQty, and true; or false if the side
// never accumulates that much.
func (s *SideBook) PriceAtDepth(targetQty types.Quantity) (types.Price, bool) {
	var cum types.Quantity
	var found types.Price
	ok := false
	s.tree.Scan(func(e entry) bool {
		cum += e.level.TotalVisible()
		if cum >= targetQty {
			found = e.price
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// CumulativeDepthToTarget returns the price and actual cumulative quantity
// of the level at which running depth first reaches targetQty.
func (s *SideBook) CumulativeDepthToTarget(targetQty types.Quantity) (types.Price, types.Quantity, bool) {
	var cum types.Quantity
	var found types.Price
	ok := false
	s.tree.Scan(func(e entry) bool {
		cum += e.level.TotalVisible()
		if cum >= targetQty {
			found = e.price
			ok = true
			return false
		}
		return true
	})
	return found, cum, ok
}

// Levels returns every resting level in priority order, used by snapshot
// and test helpers that need the whole side at once.
func (s *SideBook) Levels() []*pricelevel.PriceLevel {
	return s.TopNLevels(s.levelCount)
}
