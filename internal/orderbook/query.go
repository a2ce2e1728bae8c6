package orderbook

import (
	"glacier/internal/pricelevel"
	"glacier/internal/sidebook"
	"glacier/internal/types"
)

// BestBid returns the highest resting bid price, or false if none.
func (b *OrderBook) BestBid() (types.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.BestPrice()
}

// BestAsk returns the lowest resting ask price, or false if none.
func (b *OrderBook) BestAsk() (types.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.BestPrice()
}

// Spread returns bestAsk - bestBid, or false if either side is empty.
func (b *OrderBook) Spread() (types.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, bidOk := b.bids.BestPrice()
	ask, askOk := b.asks.BestPrice()
	if !bidOk || !askOk {
		return types.Price{}, false
	}
	return ask.Sub(bid), true
}

// MidPrice returns (bestBid+bestAsk)/2 as a float64, or false if either
// side is empty. This is the analytics boundary: the division happens in
// float64, never inside a matching decision.
func (b *OrderBook) MidPrice() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, bidOk := b.bids.BestPrice()
	ask, askOk := b.asks.BestPrice()
	if !bidOk || !askOk {
		return 0, false
	}
	return (bid.Float64() + ask.Float64()) / 2, true
}

// LastTradePrice returns the price of the most recent match, or false if no
// trade has occurred yet.
func (b *OrderBook) LastTradePrice() (types.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTradePrice, b.haveLastTrade
}

// GetOrder returns a value copy of a live order by id, or false if it is
// not currently resting (filled, cancelled, expired, or never existed).
func (b *OrderBook) GetOrder(id types.OrderId) (types.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.index[id]
	if !ok {
		return types.Order{}, false
	}
	return b.orderStillResting(id, entry.price, entry.side)
}

// WithReadLock runs fn while holding the book's read lock, for callers (the
// analytics package) that need a consistent view across several reads of
// the side books — e.g. both SideBooks at once for imbalance. fn reads
// through Bids/Asks; the book's own accessors (BestBid, LastTradePrice, ...)
// take the same lock again and are not called from inside fn.
func (b *OrderBook) WithReadLock(fn func()) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn()
}

// Bids and Asks expose the raw side books for the analytics package, which
// operates on *sidebook.SideBook directly. Callers must only read from them,
// and should do so inside WithReadLock for a consistent snapshot across
// both sides.
func (b *OrderBook) Bids() *sidebook.SideBook { return b.bids }
func (b *OrderBook) Asks() *sidebook.SideBook { return b.asks }

// QueueAheadAtPrice returns how many orders rest at price on side, the
// queue an order placed there right now would join behind.
func (b *OrderBook) QueueAheadAtPrice(price types.Price, side types.Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lvl := b.sideBook(side).LevelAt(price)
	if lvl == nil {
		return 0
	}
	return lvl.OrderCount()
}

// PriceNTicksInside returns the price `ticks` minimum-price-increments
// inside (away from the touch, deeper into the book) of side's current
// best price: lower for bids, higher for asks. Returns false if ticks or
// tickSize is zero, side is empty, or the result would underflow below
// zero.
func (b *OrderBook) PriceNTicksInside(ticks, tickSize uint64, side types.Side) (types.Price, bool) {
	if ticks == 0 || tickSize == 0 {
		return types.Price{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	best, ok := b.sideBook(side).BestPrice()
	if !ok {
		return types.Price{}, false
	}
	delta := types.NewPrice(tickSize).MulUint64(ticks)
	if side == types.Buy {
		if best.LessThan(delta) {
			return types.Price{}, false
		}
		return best.Sub(delta), true
	}
	return best.Add(delta), true
}

// PriceForQueuePosition returns the price of the position-th best level on
// side (1-indexed: 1 is the best price). Returns false if position is less
// than 1 or side has fewer than position levels.
func (b *OrderBook) PriceForQueuePosition(position int, side types.Side) (types.Price, bool) {
	if position < 1 {
		return types.Price{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	levels := b.sideBook(side).TopNLevels(position)
	if len(levels) < position {
		return types.Price{}, false
	}
	return levels[position-1].Price(), true
}

// PriceAtDepthAdjusted finds the price at which cumulative visible depth on
// side first reaches targetDepth, then returns the price one tick better
// than that level (higher for bids, lower for asks) — a placement that
// would queue just inside the level supplying the requested depth. If the
// side never accumulates targetDepth, it returns the deepest price
// reached, unadjusted. Returns false if targetDepth or tickSize is zero, or
// side is empty.
func (b *OrderBook) PriceAtDepthAdjusted(targetDepth types.Quantity, tickSize uint64, side types.Side) (types.Price, bool) {
	if targetDepth == 0 || tickSize == 0 {
		return types.Price{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	sb := b.sideBook(side)
	var cum types.Quantity
	var deepest types.Price
	found := false
	reached := false
	sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
		found = true
		cum += lvl.TotalVisible()
		deepest = lvl.Price()
		if cum >= targetDepth {
			reached = true
			return false
		}
		return true
	})
	if !found {
		return types.Price{}, false
	}
	if !reached {
		return deepest, true
	}
	tick := types.NewPrice(tickSize)
	if side == types.Buy {
		return deepest.Add(tick), true
	}
	if deepest.LessThan(tick) {
		return types.Price{}, false
	}
	return deepest.Sub(tick), true
}

// IsThinBook reports whether the top `levels` price levels of either side
// hold less than threshold combined visible quantity, including the
// degenerate case of an empty book.
func (b *OrderBook) IsThinBook(threshold types.Quantity, levels int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.TotalDepthAtLevels(levels) < threshold || b.asks.TotalDepthAtLevels(levels) < threshold
}

// GetVolumeByPrice returns the visible quantity resting at price on side,
// or zero if no level rests there.
func (b *OrderBook) GetVolumeByPrice(side types.Side, price types.Price) types.Quantity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lvl := b.sideBook(side).LevelAt(price)
	if lvl == nil {
		return 0
	}
	return lvl.TotalVisible()
}

// LiquidityInRange sums the visible quantity resting on both sides within
// [lo, hi] inclusive.
func (b *OrderBook) LiquidityInRange(lo, hi types.Price) types.Quantity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total types.Quantity
	sum := func(lvl *pricelevel.PriceLevel) bool {
		total += lvl.TotalVisible()
		return true
	}
	b.bids.IterRange(lo, hi, sum)
	b.asks.IterRange(lo, hi, sum)
	return total
}

// DepthBin is one bucket of a DepthDistribution histogram.
type DepthBin struct {
	MinPrice   float64
	MaxPrice   float64
	Volume     types.Quantity
	LevelCount int
}

// DepthDistribution buckets side's resting levels into `bins` equal-width
// price buckets spanning its numeric price range, reporting summed volume
// and level count per bucket. Returns nil if bins is zero or side is
// empty.
func (b *OrderBook) DepthDistribution(side types.Side, bins int) []DepthBin {
	if bins <= 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	levels := b.sideBook(side).Levels()
	if len(levels) == 0 {
		return nil
	}

	minF, maxF := levels[0].Price().Float64(), levels[0].Price().Float64()
	for _, lvl := range levels[1:] {
		p := lvl.Price().Float64()
		if p < minF {
			minF = p
		}
		if p > maxF {
			maxF = p
		}
	}

	// Pad the span by one tick so the top bucket's upper edge strictly
	// exceeds the observed max instead of landing exactly on it.
	span := maxF - minF + 1
	width := span / float64(bins)

	out := make([]DepthBin, bins)
	for i := range out {
		out[i].MinPrice = minF + float64(i)*width
		out[i].MaxPrice = minF + float64(i+1)*width
	}

	for _, lvl := range levels {
		idx := 0
		if width > 0 {
			idx = int((lvl.Price().Float64() - minF) / width)
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Volume += lvl.TotalVisible()
		out[idx].LevelCount++
	}
	return out
}
