package orderbook

import (
	"glacier/internal/bookerrors"
	"glacier/internal/obmetrics"
	"glacier/internal/types"
)

// CancelResult reports the outcome of Cancel.
type CancelResult struct {
	Success      bool
	RemainingQty types.Quantity
}

// Cancel removes a single resting order by id. An unknown id is a
// not-found signal (CancelResult.Success == false), not an error.
func (b *OrderBook) Cancel(id types.OrderId) CancelResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[id]
	if !ok {
		obmetrics.CancelResult(false)
		return CancelResult{}
	}

	sb := b.sideBook(entry.side)
	lvl := sb.LevelAt(entry.price)
	if lvl == nil {
		delete(b.index, id)
		obmetrics.CancelResult(false)
		return CancelResult{}
	}

	removed, ok := lvl.Cancel(id)
	if !ok {
		delete(b.index, id)
		obmetrics.CancelResult(false)
		return CancelResult{}
	}

	sb.NoteRemoved(removed.VisibleRemaining())
	delete(b.index, id)
	delete(b.pegged, id)
	delete(b.trailingStop, id)
	sb.PruneIfEmpty(entry.price)
	b.emitLevelEvent(entry.side, entry.price)

	obmetrics.CancelResult(true)
	return CancelResult{Success: true, RemainingQty: removed.Remaining()}
}

// BulkCancelResult reports how many orders a bulk cancel removed. Bulk
// cancels never fail; an empty book simply cancels zero orders.
type BulkCancelResult struct {
	CancelledCount int
}

// CancelAllOrders removes every resting order on both sides.
func (b *OrderBook) CancelAllOrders() BulkCancelResult {
	return b.cancelWhere(func(*types.Order) bool { return true })
}

// CancelOrdersBySide removes every resting order on the given side.
func (b *OrderBook) CancelOrdersBySide(side types.Side) BulkCancelResult {
	return b.cancelWhere(func(o *types.Order) bool { return o.Side == side })
}

// CancelOrdersByUser removes every resting order owned by user.
func (b *OrderBook) CancelOrdersByUser(user types.UserId) BulkCancelResult {
	return b.cancelWhere(func(o *types.Order) bool { return o.UserId == user })
}

func (b *OrderBook) cancelWhere(match func(*types.Order) bool) BulkCancelResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	var toCancel []types.OrderId
	for id, entry := range b.index {
		lvl := b.sideBook(entry.side).LevelAt(entry.price)
		if lvl == nil {
			continue
		}
		found := false
		lvl.Iter(func(o *types.Order) bool {
			if o.ID == id {
				found = match(o)
				return false
			}
			return true
		})
		if found {
			toCancel = append(toCancel, id)
		}
	}

	count := 0
	touchedLevels := make(map[indexEntry]struct{})
	for _, id := range toCancel {
		entry, ok := b.index[id]
		if !ok {
			continue
		}
		sb := b.sideBook(entry.side)
		lvl := sb.LevelAt(entry.price)
		if lvl == nil {
			continue
		}
		removed, ok := lvl.Cancel(id)
		if !ok {
			continue
		}
		sb.NoteRemoved(removed.VisibleRemaining())
		delete(b.index, id)
		delete(b.pegged, id)
		delete(b.trailingStop, id)
		touchedLevels[entry] = struct{}{}
		count++
	}
	for entry := range touchedLevels {
		b.sideBook(entry.side).PruneIfEmpty(entry.price)
		b.emitLevelEvent(entry.side, entry.price)
	}

	obmetrics.CancelResult(count > 0)
	return BulkCancelResult{CancelledCount: count}
}

// Modify changes a resting order's price and/or quantity. Increasing
// quantity or changing price loses time priority (the order is cancelled
// and re-added at the tail of its — possibly new — level); reducing
// quantity in place preserves priority.
func (b *OrderBook) Modify(id types.OrderId, newPrice *types.Price, newQty *types.Quantity) (types.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[id]
	if !ok {
		return types.Order{}, bookerrors.ErrUnknownOrderId
	}
	if newPrice == nil && newQty == nil {
		return types.Order{}, bookerrors.ErrInvalidModification
	}

	sb := b.sideBook(entry.side)
	lvl := sb.LevelAt(entry.price)
	if lvl == nil {
		return types.Order{}, bookerrors.ErrUnknownOrderId
	}

	current, found := b.orderStillResting(id, entry.price, entry.side)
	if !found {
		return types.Order{}, bookerrors.ErrUnknownOrderId
	}

	priceChanged := newPrice != nil && !newPrice.Equal(entry.price)
	qtyIncreased := newQty != nil && *newQty > current.Remaining()

	updated := current
	if newPrice != nil {
		updated.Price = *newPrice
	}
	if newQty != nil {
		if *newQty == 0 {
			return types.Order{}, bookerrors.ErrZeroQuantity
		}
		if updated.Type == types.IcebergOrder {
			updated.VisibleQuantity = *newQty
			updated.HiddenQuantity = 0
			updated.OriginalVisibleQty = *newQty
		} else {
			updated.RemainingQuantity = *newQty
		}
	}

	if !priceChanged && !qtyIncreased {
		// In-place quantity reduction: preserve priority by mutating the
		// resting order directly rather than cancel/re-add.
		var targetDelta types.Quantity
		lvl.Iter(func(o *types.Order) bool {
			if o.ID != id {
				return true
			}
			before := o.VisibleRemaining()
			if o.Type == types.IcebergOrder {
				o.VisibleQuantity = updated.VisibleQuantity
			} else {
				o.RemainingQuantity = updated.RemainingQuantity
			}
			targetDelta = before - o.VisibleRemaining()
			return false
		})
		sb.NoteRemoved(targetDelta)
		b.emitLevelEvent(entry.side, entry.price)
		return updated, nil
	}

	// Price change or quantity increase: loses priority. Remove and re-add.
	removed, ok := lvl.Cancel(id)
	if !ok {
		return types.Order{}, bookerrors.ErrUnknownOrderId
	}
	sb.NoteRemoved(removed.VisibleRemaining())
	delete(b.index, id)
	sb.PruneIfEmpty(entry.price)
	b.emitLevelEvent(entry.side, entry.price)

	updated.Sequence = 0
	b.restOrder(&updated)
	return updated, nil
}
