package orderbook

import (
	"github.com/rs/zerolog/log"

	"glacier/internal/bookerrors"
	"glacier/internal/types"
)

// AddPeggedOrder rests a PeggedOrder at its currently-computed reference
// price. Its price is recomputed later by RepricePeggedOrders; arrival
// itself is treated like a GTC limit order at that initial price.
func (b *OrderBook) AddPeggedOrder(o types.Order) (types.TradeResult, error) {
	o.Type = types.PeggedOrderType
	o.TIF = types.GTC
	o.Price = b.computePegPrice(o.Side, o.PegRef, o.PegOffset, o.Price)
	return b.AddLimitOrder(o)
}

// computePegPrice resolves a pegged order's reference price plus its signed
// offset. If the reference is unavailable (e.g. empty opposite side), the
// order's existing fallback price is retained rather than dropping the
// order.
func (b *OrderBook) computePegPrice(side types.Side, ref types.PegReference, offset int64, fallback types.Price) types.Price {
	var base types.Price
	ok := false
	switch ref {
	case types.PegBestBid:
		base, ok = b.bids.BestPrice()
	case types.PegBestAsk:
		base, ok = b.asks.BestPrice()
	case types.PegMidPrice:
		bid, bidOk := b.bids.BestPrice()
		ask, askOk := b.asks.BestPrice()
		if bidOk && askOk {
			sum := bid.Add(ask)
			base = types.Price{Hi: sum.Hi >> 1, Lo: sum.Lo>>1 | sum.Hi<<63}
			ok = true
		}
	case types.PegLastTrade:
		base, ok = b.lastTradePrice, b.haveLastTrade
	}
	if !ok {
		return fallback
	}
	return applyOffset(base, offset)
}

func applyOffset(base types.Price, offset int64) types.Price {
	if offset >= 0 {
		return base.Add(types.NewPrice(uint64(offset)))
	}
	mag := types.NewPrice(uint64(-offset))
	if base.LessThan(mag) {
		return types.Price{}
	}
	return base.Sub(mag)
}

// RepricePeggedOrders recomputes every pegged order's price and, if it
// changed, cancels and re-adds it at the new price (losing time priority).
// Returns the number of orders repriced.
func (b *OrderBook) RepricePeggedOrders() int {
	b.mu.Lock()
	ids := make([]types.OrderId, 0, len(b.pegged))
	for id := range b.pegged {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	count := 0
	for _, id := range ids {
		b.mu.Lock()
		entry, ok := b.index[id]
		if !ok {
			b.mu.Unlock()
			continue
		}
		current, found := b.orderStillResting(id, entry.price, entry.side)
		if !found {
			b.mu.Unlock()
			continue
		}
		newPrice := b.computePegPrice(current.Side, current.PegRef, current.PegOffset, current.Price)
		if newPrice.Equal(entry.price) {
			b.mu.Unlock()
			continue
		}
		b.mu.Unlock()

		p := newPrice
		if _, err := b.Modify(id, &p, nil); err == nil {
			count++
		}
	}
	return count
}

// RegisterTrailingStop enrolls a trailing-stop order. It does not rest on
// either SideBook until triggered; it is tracked separately and converted
// into a market order when the market crosses its stop price.
func (b *OrderBook) RegisterTrailingStop(o types.Order) error {
	o.Type = types.TrailingStopOrder
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.index[o.ID]; exists {
		return bookerrors.ErrDuplicateOrderId
	}
	if _, exists := b.trailingStop[o.ID]; exists {
		return bookerrors.ErrDuplicateOrderId
	}
	copyOrder := o
	b.trailingStop[o.ID] = &copyOrder
	return nil
}

// RepriceTrailingStops ratchets every registered trailing stop's reference
// price in the favorable direction only (never loosening) and triggers
// (converts to a market order) any whose stop price the current market has
// crossed. Returns the number of orders whose reference price ratcheted
// this call.
func (b *OrderBook) RepriceTrailingStops() int {
	b.mu.Lock()
	type pending struct {
		id   types.OrderId
		side types.Side
		qty  types.Quantity
	}
	var toTrigger []pending
	ratcheted := 0

	for id, o := range b.trailingStop {
		var ref types.Price
		ok := false
		if o.Side == types.Sell {
			ref, ok = b.bids.BestPrice()
		} else {
			ref, ok = b.asks.BestPrice()
		}
		if !ok {
			continue
		}

		if o.Side == types.Sell {
			if !o.LastReferencePrice.Zero() && ref.LessThan(o.LastReferencePrice) {
				// Market moved against the stop; no ratchet.
			} else if ref.GreaterThan(o.LastReferencePrice) {
				o.LastReferencePrice = ref
				ratcheted++
			}
		} else {
			if o.LastReferencePrice.Zero() || ref.LessThan(o.LastReferencePrice) {
				o.LastReferencePrice = ref
				ratcheted++
			}
		}

		if trailingStopTriggered(o, ref) {
			toTrigger = append(toTrigger, pending{id: id, side: o.Side, qty: o.Remaining()})
		}
	}
	for _, t := range toTrigger {
		delete(b.trailingStop, t.id)
	}
	b.mu.Unlock()

	for _, t := range toTrigger {
		log.Info().Str("order", t.id.String()).Msg("trailing stop triggered, submitting market order")
		if _, err := b.SubmitMarketOrder(t.id, t.side, t.qty); err != nil {
			log.Warn().Str("order", t.id.String()).Err(err).Msg("triggered trailing stop failed to fill")
		}
	}
	return ratcheted
}

// RepriceSpecialOrders runs both pegged and trailing-stop repricing in one
// call and returns the combined count repriced.
func (b *OrderBook) RepriceSpecialOrders() int {
	return b.RepricePeggedOrders() + b.RepriceTrailingStops()
}

// trailingStopTriggered reports whether a trailing-stop order's stop price,
// computed from its current ratcheted reference, has been crossed by ref
// (the opposite side's current best price). It does not mutate o.
func trailingStopTriggered(o *types.Order, ref types.Price) bool {
	if o.LastReferencePrice.Zero() {
		// No reference established yet (the order's first ratchet hasn't
		// run); there is no stop price to compare against.
		return false
	}
	if o.Side == types.Sell {
		stop := o.LastReferencePrice.Sub(o.TrailAmount)
		return ref.LessThan(stop) || ref.Equal(stop)
	}
	stop := o.LastReferencePrice.Add(o.TrailAmount)
	return ref.GreaterThan(stop) || ref.Equal(stop)
}

// ShouldTriggerTrailingStop reports whether a registered trailing stop
// would fire against the book's current best opposite-side price right
// now, without ratcheting its reference or triggering it. The second
// return is false if id is not a registered trailing stop.
func (b *OrderBook) ShouldTriggerTrailingStop(id types.OrderId) (bool, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.trailingStop[id]
	if !ok {
		return false, false
	}
	var ref types.Price
	if o.Side == types.Sell {
		ref, ok = b.bids.BestPrice()
	} else {
		ref, ok = b.asks.BestPrice()
	}
	if !ok {
		return false, true
	}
	return trailingStopTriggered(o, ref), true
}

// PeggedOrderCount returns the number of live pegged orders.
func (b *OrderBook) PeggedOrderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pegged)
}

// PeggedOrderIDs returns the ids of every live pegged order.
func (b *OrderBook) PeggedOrderIDs() []types.OrderId {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]types.OrderId, 0, len(b.pegged))
	for id := range b.pegged {
		ids = append(ids, id)
	}
	return ids
}

// TrailingStopCount returns the number of registered (untriggered)
// trailing-stop orders.
func (b *OrderBook) TrailingStopCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.trailingStop)
}

// TrailingStopIDs returns the ids of every registered trailing-stop order.
func (b *OrderBook) TrailingStopIDs() []types.OrderId {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]types.OrderId, 0, len(b.trailingStop))
	for id := range b.trailingStop {
		ids = append(ids, id)
	}
	return ids
}
