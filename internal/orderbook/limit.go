package orderbook

import (
	"github.com/rs/zerolog/log"

	"glacier/internal/bookerrors"
	"glacier/internal/obmetrics"
	"glacier/internal/pricelevel"
	"glacier/internal/types"
)

// AddLimitOrder accepts a Limit, Iceberg, PostOnly, or (pre-priced) Pegged
// order: validate, check for a cross, apply the FOK pre-scan or walk the
// opposite book, then rest or discard any residual per the order's
// TimeInForce. Pegged orders arrive through AddPeggedOrder, which computes
// their initial price before handing them here.
func (b *OrderBook) AddLimitOrder(o types.Order) (types.TradeResult, error) {
	switch o.Type {
	case types.LimitOrder, types.IcebergOrder, types.PostOnlyOrder, types.PeggedOrderType:
	default:
		return types.TradeResult{}, bookerrors.ErrInvalidModification
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.validateNewOrder(&o); err != nil {
		obmetrics.OrderRejected()
		return types.TradeResult{}, err
	}

	b.stampTimestamp(&o)

	willCross := b.crosses(o.Side, o.Price)

	if o.Type == types.PostOnlyOrder && willCross {
		obmetrics.OrderRejected()
		log.Warn().Str("order", o.ID.String()).Msg("post-only order would cross, rejecting")
		return types.TradeResult{}, bookerrors.ErrPostOnlyWouldCross
	}

	if o.TIF == types.FOK {
		available := b.qtyAvailableAtOrBetter(o.Side, o.Price, o.Timestamp)
		if available < o.Remaining() {
			obmetrics.OrderRejected()
			log.Warn().Str("order", o.ID.String()).Msg("fill-or-kill order unfillable, rejecting")
			return types.TradeResult{}, bookerrors.ErrFillOrKillUnfillable
		}
	}

	result := types.TradeResult{TakerID: o.ID, TakerSide: o.Side}

	if willCross {
		b.walkOpposite(&o, &result, true)
	}

	residual := o.Remaining()
	result.Remaining = residual
	if residual > 0 {
		switch o.TIF {
		case types.IOC:
			// Cancel the residual; nothing to rest.
		case types.FOK:
			// The pre-scan above guarantees this is unreachable; guard
			// against resting a partially-filled FOK order anyway.
			obmetrics.OrderRejected()
			return types.TradeResult{}, bookerrors.ErrFillOrKillUnfillable
		default:
			b.restOrder(&o)
		}
	}

	obmetrics.OrderAccepted()
	b.dispatchTrade(result)
	return result, nil
}

// validateNewOrder applies the checks every incoming order must pass before
// it is eligible to match or rest: no duplicate id, a positive quantity, and
// (for anything but a market order) a valid price.
func (b *OrderBook) validateNewOrder(o *types.Order) error {
	if _, exists := b.index[o.ID]; exists {
		return bookerrors.ErrDuplicateOrderId
	}
	if o.Remaining() == 0 {
		return bookerrors.ErrZeroQuantity
	}
	if o.Type != types.MarketOrder && o.Price.Zero() {
		return bookerrors.ErrInvalidPrice
	}
	return nil
}

// qtyAvailableAtOrBetter sums the visible quantity resting on the opposite
// side at prices at-or-better than limit, for the FOK pre-scan. GTD orders
// already expired as of now are not counted, since the match walk purges
// them instead of matching them. It never mutates state.
func (b *OrderBook) qtyAvailableAtOrBetter(side types.Side, limit types.Price, now types.TimestampMs) types.Quantity {
	opposite := b.sideBook(side.Opposite())
	var total types.Quantity
	opposite.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
		if !atOrBetter(side, lvl.Price(), limit) {
			return false
		}
		lvl.Iter(func(ro *types.Order) bool {
			if !ro.Expired(now) {
				total += ro.VisibleRemaining()
			}
			return true
		})
		return true
	})
	return total
}

// restOrder inserts o onto its own side at its own price and indexes it.
// Callers hold mu.
func (b *OrderBook) restOrder(o *types.Order) {
	if o.Type == types.IcebergOrder && o.OriginalVisibleQty == 0 {
		o.OriginalVisibleQty = o.VisibleQuantity
	}
	sb := b.sideBook(o.Side)
	lvl := sb.GetOrCreate(o.Price)
	lvl.Add(o)
	sb.NoteAdded(o.VisibleRemaining())
	b.index[o.ID] = indexEntry{side: o.Side, price: o.Price}
	if o.Type == types.PeggedOrderType {
		b.pegged[o.ID] = struct{}{}
	}
	b.emitLevelEvent(o.Side, o.Price)
}

// walkOpposite matches the incoming taker against the opposite side,
// best-first, stopping when the taker is filled, the book is exhausted, or
// (when boundByLimit is true) the next level's price is worse than the
// taker's limit. Transactions and level events are accumulated into result
// and emitted immediately per level so listeners see consistent book state.
// Callers hold mu.
func (b *OrderBook) walkOpposite(o *types.Order, result *types.TradeResult, boundByLimit bool) {
	opposite := b.sideBook(o.Side.Opposite())
	now := o.Timestamp
	levelsTouched := 0

	for o.Remaining() > 0 {
		lvl := opposite.BestLevel()
		if lvl == nil {
			break
		}
		if boundByLimit && !atOrBetter(o.Side, lvl.Price(), o.Price) {
			break
		}

		b.purgeExpiredFromLevel(o.Side.Opposite(), lvl, now)
		if lvl.Empty() {
			opposite.PruneIfEmpty(lvl.Price())
			b.emitLevelEvent(o.Side.Opposite(), lvl.Price())
			continue
		}

		levelPrice := lvl.Price()
		visibleBefore := lvl.TotalVisible()
		res := lvl.MatchAgainst(o.ID, o.Remaining(), b.refreshSize(), b.nextTrade)
		if len(res.Transactions) == 0 {
			break
		}
		levelsTouched++

		// Net visible change: fills minus any iceberg slices refreshed from
		// hidden reserve during the match.
		opposite.NoteRemoved(visibleBefore - lvl.TotalVisible())
		if o.Type == types.IcebergOrder {
			o.VisibleQuantity -= minQty(o.VisibleQuantity, res.Executed)
		} else {
			o.RemainingQuantity -= minQty(o.RemainingQuantity, res.Executed)
		}

		for _, tx := range res.Transactions {
			result.Transactions = append(result.Transactions, tx)
			result.Executed += tx.Quantity
			if _, stillResting := b.orderStillResting(tx.MakerID, levelPrice, o.Side.Opposite()); !stillResting {
				delete(b.index, tx.MakerID)
			}
		}
		b.lastTradePrice = levelPrice
		b.haveLastTrade = true

		opposite.PruneIfEmpty(levelPrice)
		b.emitLevelEvent(o.Side.Opposite(), levelPrice)
	}

	result.Remaining = o.Remaining()
	obmetrics.ObserveMatchWalkLevels(levelsTouched)
}

// orderStillResting reports whether id is still present at price on side,
// used to decide whether a maker consumed during a match walk should be
// dropped from the order index (fully consumed) or kept (partially filled,
// or iceberg-refreshed and requeued at the same level).
func (b *OrderBook) orderStillResting(id types.OrderId, price types.Price, side types.Side) (types.Order, bool) {
	lvl := b.sideBook(side).LevelAt(price)
	if lvl == nil {
		return types.Order{}, false
	}
	var found types.Order
	ok := false
	lvl.Iter(func(o *types.Order) bool {
		if o.ID == id {
			found = *o
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

func (b *OrderBook) refreshSize() types.Quantity {
	return types.Quantity(b.cfg.IcebergRefreshSize)
}

func minQty(a, b types.Quantity) types.Quantity {
	if a < b {
		return a
	}
	return b
}
