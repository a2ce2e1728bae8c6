// Package analytics computes read-only market-data views over an
// orderbook.OrderBook: mid-price, spread, VWAP, micro-price, depth
// imbalance and hypothetical market-impact cost. Every function here
// narrows to float64 at its own boundary, the only place in the module
// where that narrowing is allowed — matching itself never touches floating
// point.
package analytics

import (
	"math"

	"glacier/internal/config"
	"glacier/internal/orderbook"
	"glacier/internal/pricelevel"
	"glacier/internal/sidebook"
	"glacier/internal/types"
)

// MidPrice returns the simple average of best bid and best ask, or false if
// either side is empty.
func MidPrice(ob *orderbook.OrderBook) (float64, bool) {
	return ob.MidPrice()
}

// SpreadAbsolute returns bestAsk - bestBid in ticks, or false if either side
// is empty.
func SpreadAbsolute(ob *orderbook.OrderBook) (types.Price, bool) {
	return ob.Spread()
}

// SpreadBps expresses the spread as basis points of the mid price, scaled by
// cfg.SpreadBpsMultiplier (10000 for standard basis points).
func SpreadBps(ob *orderbook.OrderBook, cfg config.Config) (float64, bool) {
	spread, sok := ob.Spread()
	mid, mok := ob.MidPrice()
	if !sok || !mok || mid == 0 {
		return 0, false
	}
	return (spread.Float64() / mid) * float64(cfg.SpreadBpsMultiplier), true
}

// MicroPrice weights best bid and best ask by the opposite side's top-of-book
// volume: a book with a much deeper bid than ask is expected to trade closer
// to the ask, and vice versa.
func MicroPrice(ob *orderbook.OrderBook) (float64, bool) {
	var bid, ask types.Price
	var bidVol, askVol types.Quantity
	ok := false
	ob.WithReadLock(func() {
		b, bok := ob.Bids().BestPrice()
		a, aok := ob.Asks().BestPrice()
		if !bok || !aok {
			return
		}
		bidLvl := ob.Bids().BestLevel()
		askLvl := ob.Asks().BestLevel()
		if bidLvl == nil || askLvl == nil {
			return
		}
		bid, ask = b, a
		bidVol, askVol = bidLvl.TotalVisible(), askLvl.TotalVisible()
		ok = true
	})
	if !ok {
		return 0, false
	}
	totalVol := float64(bidVol + askVol)
	if totalVol == 0 {
		return (bid.Float64() + ask.Float64()) / 2, true
	}
	return (bid.Float64()*float64(askVol) + ask.Float64()*float64(bidVol)) / totalVol, true
}

// OrderBookImbalance returns (bidDepth-askDepth)/(bidDepth+askDepth) summed
// over the top `levels` price levels of each side, in [-1, 1]. Returns false
// if both sides are empty.
func OrderBookImbalance(ob *orderbook.OrderBook, levels int) (float64, bool) {
	var bidDepth, askDepth types.Quantity
	ob.WithReadLock(func() {
		bidDepth = ob.Bids().TotalDepthAtLevels(levels)
		askDepth = ob.Asks().TotalDepthAtLevels(levels)
	})
	total := float64(bidDepth + askDepth)
	if total == 0 {
		return 0, false
	}
	return (float64(bidDepth) - float64(askDepth)) / total, true
}

// VWAP returns the volume-weighted average price of filling qty against the
// opposite side of the book from side — i.e. VWAP(Buy, qty) prices a
// hypothetical buy of qty against the resting asks. Returns false if the
// opposite side cannot supply qty at all (zero liquidity); a partial fill
// still returns the VWAP over what was available.
func VWAP(ob *orderbook.OrderBook, side types.Side, qty types.Quantity) (float64, bool) {
	sb := oppositeSideBook(ob, side)
	var weighted float64
	var filled types.Quantity
	ob.WithReadLock(func() {
		sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
			if filled >= qty {
				return false
			}
			take := lvl.TotalVisible()
			if remaining := qty - filled; take > remaining {
				take = remaining
			}
			weighted += lvl.Price().Float64() * float64(take)
			filled += take
			return true
		})
	})
	if filled == 0 {
		return 0, false
	}
	return weighted / float64(filled), true
}

// Impact is the outcome of a hypothetical MarketImpact walk.
type Impact struct {
	AvgPrice               float64
	WorstPrice             float64
	SlippageAbsolute       float64
	SlippageBps            float64
	LevelsConsumed         int
	TotalQuantityAvailable types.Quantity
}

// MarketImpact estimates the cost of executing qty as a taker on side: the
// volume-weighted average price, the worst price touched, slippage versus
// the best price at the top of book, and how many levels the walk consumed.
// Returns false if the opposite side is entirely empty.
func MarketImpact(ob *orderbook.OrderBook, side types.Side, qty types.Quantity) (Impact, bool) {
	sb := oppositeSideBook(ob, side)
	var weighted float64
	var filled types.Quantity
	var worst types.Price
	var best types.Price
	haveBest := false
	levels := 0

	ob.WithReadLock(func() {
		sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
			if !haveBest {
				best = lvl.Price()
				haveBest = true
			}
			if filled >= qty {
				return false
			}
			take := lvl.TotalVisible()
			if remaining := qty - filled; take > remaining {
				take = remaining
			}
			weighted += lvl.Price().Float64() * float64(take)
			filled += take
			worst = lvl.Price()
			levels++
			return true
		})
	})

	if !haveBest {
		return Impact{}, false
	}

	total := sb.TotalVisibleQuantity()
	if filled == 0 {
		return Impact{TotalQuantityAvailable: total}, true
	}

	avg := weighted / float64(filled)
	bestF := best.Float64()
	slippage := avg - bestF
	if side == types.Sell {
		// Selling walks the bids downward; slippage is how far below best
		// bid the average fill lands, expressed as a positive cost.
		slippage = bestF - avg
	}
	var slippageBps float64
	if bestF != 0 {
		slippageBps = (slippage / bestF) * 10000
	}

	return Impact{
		AvgPrice:               avg,
		WorstPrice:             worst.Float64(),
		SlippageAbsolute:       slippage,
		SlippageBps:            slippageBps,
		LevelsConsumed:         levels,
		TotalQuantityAvailable: total,
	}, true
}

func oppositeSideBook(ob *orderbook.OrderBook, side types.Side) *sidebook.SideBook {
	if side == types.Buy {
		return ob.Asks()
	}
	return ob.Bids()
}

// LevelsWithCumulativeDepth calls fn for every level of sb in priority
// order along with the running cumulative visible quantity through that
// level, stopping early if fn returns false.
func LevelsWithCumulativeDepth(sb *sidebook.SideBook, fn func(lvl *pricelevel.PriceLevel, cumulative types.Quantity) bool) {
	var cum types.Quantity
	sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
		cum += lvl.TotalVisible()
		return fn(lvl, cum)
	})
}

// LevelsUntilDepth calls fn for every level of sb until the cumulative
// visible quantity reaches target, inclusive of the level that crosses it.
func LevelsUntilDepth(sb *sidebook.SideBook, target types.Quantity, fn func(lvl *pricelevel.PriceLevel) bool) {
	var cum types.Quantity
	sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
		if cum >= target {
			return false
		}
		cum += lvl.TotalVisible()
		return fn(lvl)
	})
}

// LevelsInRange calls fn for every level of sb priced within [lo, hi].
func LevelsInRange(sb *sidebook.SideBook, lo, hi types.Price, fn func(lvl *pricelevel.PriceLevel) bool) {
	sb.IterRange(lo, hi, fn)
}

// FindLevel returns the level resting at price, or false if none.
func FindLevel(sb *sidebook.SideBook, price types.Price) (*pricelevel.PriceLevel, bool) {
	lvl := sb.LevelAt(price)
	return lvl, lvl != nil
}

// DepthStatistics summarizes the top n levels of one side of the book.
type DepthStatistics struct {
	TotalVolume      types.Quantity
	LevelsCount      int
	AvgLevelSize     float64
	MinLevelSize     types.Quantity
	MaxLevelSize     types.Quantity
	StdDevLevelSize  float64
	WeightedAvgPrice float64
}

// IsEmpty reports whether no levels contributed to the statistics.
func (s DepthStatistics) IsEmpty() bool { return s.LevelsCount == 0 }

// DepthStatisticsFor computes aggregate statistics over the top n levels of
// side (n<=0 means every level): total volume, level count, average/min/max
// level size, the population standard deviation of level size, and the
// size-weighted average price.
func DepthStatisticsFor(ob *orderbook.OrderBook, side types.Side, n int) DepthStatistics {
	sb := sideBookFor(ob, side)
	var stats DepthStatistics
	var sizes []types.Quantity
	var weightedPrice float64

	ob.WithReadLock(func() {
		count := 0
		sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
			if n > 0 && count >= n {
				return false
			}
			size := lvl.TotalVisible()
			stats.TotalVolume += size
			weightedPrice += lvl.Price().Float64() * float64(size)
			sizes = append(sizes, size)
			if stats.LevelsCount == 0 || size < stats.MinLevelSize {
				stats.MinLevelSize = size
			}
			if size > stats.MaxLevelSize {
				stats.MaxLevelSize = size
			}
			stats.LevelsCount++
			count++
			return true
		})
	})

	if stats.LevelsCount == 0 {
		return stats
	}

	stats.AvgLevelSize = float64(stats.TotalVolume) / float64(stats.LevelsCount)
	stats.WeightedAvgPrice = weightedPrice / float64(stats.TotalVolume)

	var sqDiff float64
	for _, size := range sizes {
		d := float64(size) - stats.AvgLevelSize
		sqDiff += d * d
	}
	stats.StdDevLevelSize = math.Sqrt(sqDiff / float64(len(sizes)))

	return stats
}

// BuySellPressure returns total resting visible volume on the bid side and
// the ask side, in that order.
func BuySellPressure(ob *orderbook.OrderBook) (buyPressure, sellPressure types.Quantity) {
	ob.WithReadLock(func() {
		buyPressure = ob.Bids().TotalVisibleQuantity()
		sellPressure = ob.Asks().TotalVisibleQuantity()
	})
	return buyPressure, sellPressure
}

// MarketOrderSimulation is the outcome of a hypothetical SimulateMarketOrder
// walk: how much of qty would fill, at what volume-weighted price, and
// whether it would fill in full. Unlike MarketImpact, this does not frame
// the result as slippage cost — it answers "what would happen to this
// order", the vocabulary an order-placement caller wants.
type MarketOrderSimulation struct {
	FillableQuantity types.Quantity
	AvgPrice         float64
	FullyFilled      bool
}

// SimulateMarketOrder walks the opposite side of the book read-only, as if
// submitting a market order of qty on side, and reports what would happen
// without mutating any state.
func SimulateMarketOrder(ob *orderbook.OrderBook, side types.Side, qty types.Quantity) MarketOrderSimulation {
	sb := oppositeSideBook(ob, side)
	var weighted float64
	var filled types.Quantity

	ob.WithReadLock(func() {
		sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
			if filled >= qty {
				return false
			}
			take := lvl.TotalVisible()
			if remaining := qty - filled; take > remaining {
				take = remaining
			}
			weighted += lvl.Price().Float64() * float64(take)
			filled += take
			return true
		})
	})

	sim := MarketOrderSimulation{FillableQuantity: filled, FullyFilled: filled >= qty}
	if filled > 0 {
		sim.AvgPrice = weighted / float64(filled)
	}
	return sim
}

func sideBookFor(ob *orderbook.OrderBook, side types.Side) *sidebook.SideBook {
	if side == types.Buy {
		return ob.Bids()
	}
	return ob.Asks()
}
