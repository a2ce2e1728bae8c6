// Package pricelevel implements the FIFO order queue resting at a single
// price: appends, matching against an incoming taker, cancellation, and the
// per-level aggregates the SideBook and analytics layers read. Orders are
// held in a plain slice, consumed from the head and sliced off the front as
// they fill, extended with an iceberg refresh/requeue rule for orders that
// keep part of their size hidden.
package pricelevel

import (
	"glacier/internal/types"
)

// PriceLevel owns every resting order at one price, in arrival order.
// It is not safe for concurrent use; callers (SideBook, OrderBook) serialize
// access themselves.
type PriceLevel struct {
	price types.Price

	orders []*types.Order

	totalVisible types.Quantity
	totalHidden  types.Quantity

	nextSequence types.SequenceNumber
}

// New returns an empty price level at the given price.
func New(price types.Price) *PriceLevel {
	return &PriceLevel{price: price}
}

func (l *PriceLevel) Price() types.Price        { return l.price }
func (l *PriceLevel) TotalVisible() types.Quantity { return l.totalVisible }
func (l *PriceLevel) TotalHidden() types.Quantity  { return l.totalHidden }
func (l *PriceLevel) TotalQuantity() types.Quantity {
	return l.totalVisible + l.totalHidden
}
func (l *PriceLevel) OrderCount() int { return len(l.orders) }
func (l *PriceLevel) Empty() bool     { return len(l.orders) == 0 }

// Iter calls fn for every resting order head-to-tail, stopping early if fn
// returns false.
func (l *PriceLevel) Iter(fn func(*types.Order) bool) {
	for _, o := range l.orders {
		if !fn(o) {
			return
		}
	}
}

// OrderSnapshots returns value copies of every resting order head-to-tail,
// for callers (snapshot restore, analytics) that must not hold a mutable
// alias into the level's own state.
func (l *PriceLevel) OrderSnapshots() []types.Order {
	out := make([]types.Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.Clone()
	}
	return out
}

// Add appends an order to the tail, assigning it the level's next arrival
// sequence number (invariant 1: total order by arrival sequence), and
// updates aggregates.
func (l *PriceLevel) Add(o *types.Order) {
	l.nextSequence++
	o.Sequence = l.nextSequence
	l.orders = append(l.orders, o)
	l.totalVisible += o.VisibleRemaining()
	if o.Type == types.IcebergOrder {
		l.totalHidden += o.HiddenQuantity
	}
}

// Cancel removes the order with the given id, preserving the queue order of
// the rest, and returns it. The second return is false if no such order
// rests at this level (not-found is a signal, not an error).
func (l *PriceLevel) Cancel(id types.OrderId) (*types.Order, bool) {
	for i, o := range l.orders {
		if o.ID == id {
			l.removeAt(i)
			return o, true
		}
	}
	return nil, false
}

func (l *PriceLevel) removeAt(i int) {
	o := l.orders[i]
	l.totalVisible -= o.VisibleRemaining()
	if o.Type == types.IcebergOrder {
		l.totalHidden -= o.HiddenQuantity
	}
	l.orders = append(l.orders[:i], l.orders[i+1:]...)
}

// refreshSize computes the iceberg refill slice for o, given the configured
// knob: 0 means "use the order's own original visible quantity".
func refreshSize(o *types.Order, configured types.Quantity) types.Quantity {
	size := o.OriginalVisibleQty
	if configured > 0 {
		size = configured
	}
	if size > o.HiddenQuantity {
		size = o.HiddenQuantity
	}
	if size > o.OriginalVisibleQty && o.OriginalVisibleQty > 0 {
		size = o.OriginalVisibleQty
	}
	return size
}

// refreshIceberg refills an exhausted iceberg's visible quantity from its
// hidden reserve and moves it to the tail, losing priority (invariant 3).
// It must be called only when o.VisibleQuantity == 0 and o.HiddenQuantity > 0.
func (l *PriceLevel) refreshIceberg(o *types.Order, configuredRefresh types.Quantity) {
	slice := refreshSize(o, configuredRefresh)
	o.VisibleQuantity = slice
	o.HiddenQuantity -= slice
	l.totalHidden -= slice
	l.totalVisible += slice
	l.nextSequence++
	o.Sequence = l.nextSequence

	// Move to tail: find and relocate. Since this is called only from
	// MatchAgainst while iterating the head, the caller removes it from its
	// current position and re-appends; see MatchAgainst below.
}

// MatchResult carries the outcome of matching an incoming taker against this
// level for up to maxQty.
type MatchResult struct {
	Transactions []types.Transaction
	Executed     types.Quantity
}

// MatchAgainst consumes resting orders from the head of the queue against an
// incoming taker, up to maxQty: partial fill retains head priority; full
// consumption of a non-iceberg (or an iceberg with no hidden remainder)
// drops the order and continues; an exhausted iceberg with hidden remainder
// refreshes and moves to the tail. All transactions are priced at this
// level's price.
func (l *PriceLevel) MatchAgainst(takerID types.OrderId, maxQty types.Quantity, configuredRefresh types.Quantity, nextTradeID func() uint64) MatchResult {
	result := MatchResult{}
	remaining := maxQty

	for remaining > 0 && len(l.orders) > 0 {
		head := l.orders[0]
		headVisible := head.VisibleRemaining()
		if headVisible == 0 {
			// Defensive: an order with nothing visible should not be resting;
			// drop it rather than spin.
			l.removeAtNoAggregateAdjust(0)
			continue
		}

		fillQty := headVisible
		if remaining < fillQty {
			fillQty = remaining
		}

		result.Transactions = append(result.Transactions, types.Transaction{
			TradeID:  nextTradeID(),
			MakerID:  head.ID,
			TakerID:  takerID,
			Price:    l.price,
			Quantity: fillQty,
		})
		result.Executed += fillQty
		remaining -= fillQty
		l.totalVisible -= fillQty

		if head.Type == types.IcebergOrder {
			head.VisibleQuantity -= fillQty
		} else {
			head.RemainingQuantity -= fillQty
		}

		if head.VisibleRemaining() > 0 {
			// Partial fill of the head: it retains priority (invariant 3),
			// stop — remaining taker quantity (if any) will try the next
			// level, not the next order here, since this order still has
			// the best priority.
			break
		}

		// Head's visible part is exhausted.
		if head.Type == types.IcebergOrder && head.HiddenQuantity > 0 {
			l.orders = l.orders[1:]
			l.refreshIceberg(head, configuredRefresh)
			l.orders = append(l.orders, head)
			continue
		}

		// Fully exhausted: drop and continue with the new head.
		l.orders = l.orders[1:]
	}

	return result
}

// removeAtNoAggregateAdjust drops an order without touching aggregates,
// used only for the defensive zero-visible case above where aggregates were
// already consistent (the order contributed nothing).
func (l *PriceLevel) removeAtNoAggregateAdjust(i int) {
	l.orders = append(l.orders[:i], l.orders[i+1:]...)
}
