// Package orderbook composes two sidebook.SideBooks into the two-sided book:
// order-id index, matching algorithm, listener dispatch, snapshotting, and
// repricing, across the full tagged-variant set of order kinds (limit,
// iceberg, post-only, market, pegged, trailing-stop).
package orderbook

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"

	"glacier/internal/config"
	"glacier/internal/obmetrics"
	"glacier/internal/sidebook"
	"glacier/internal/types"
)

// indexEntry is the order-id index's value: enough to find an order's
// current resting location without the index owning it — the level-handle
// here is a Price, a lookup key, not an owning reference.
type indexEntry struct {
	side  types.Side
	price types.Price
}

// OrderBook is the canonical state of resting orders for one symbol. The
// zero value is not usable; construct with New.
//
// Concurrency: mu guards the two SideBooks and the order index for "direct
// mode" — multiple goroutines may call OrderBook methods directly. In
// "sequenced mode" a single Sequencer serializes writes and mu
// degrades to protecting readers (snapshots, analytics) against the single
// writer. go-deadlock's RWMutex is a drop-in for sync.RWMutex that detects
// lock-ordering mistakes, which matter once pegged/trailing-stop repricing
// start nesting calls into the same lock.
type OrderBook struct {
	mu deadlock.RWMutex

	symbol string
	cfg    config.Config

	bids *sidebook.SideBook
	asks *sidebook.SideBook

	index map[types.OrderId]indexEntry

	pegged       map[types.OrderId]struct{}
	trailingStop map[types.OrderId]*types.Order

	lastTradePrice types.Price
	haveLastTrade  bool

	nextTradeID uint64

	tradeListeners []types.TradeListener
	levelListeners []types.PriceLevelChangedListener

	// Clock supplies the timestamp stamped onto orders that arrive without
	// one already set (the embedded "direct mode" path with no Sequencer in
	// front of it). Matching itself never reads it: GTD expiry during a
	// match walk uses the incoming order's own timestamp. The Sequencer
	// stamps limit, pegged and trailing-stop orders before calling in;
	// SubmitMarketOrder takes no timestamp, so every market order, including
	// one submitted for a triggered trailing stop, is stamped from Clock.
	Clock func() types.TimestampMs
}

// New constructs an empty order book for symbol.
func New(symbol string, cfg config.Config) *OrderBook {
	return &OrderBook{
		symbol:       symbol,
		cfg:          cfg,
		bids:         sidebook.New(types.Buy),
		asks:         sidebook.New(types.Sell),
		index:        make(map[types.OrderId]indexEntry),
		pegged:       make(map[types.OrderId]struct{}),
		trailingStop: make(map[types.OrderId]*types.Order),
		Clock:        func() types.TimestampMs { return types.TimestampMs(time.Now().UnixMilli()) },
	}
}

func (b *OrderBook) Symbol() string { return b.symbol }

// AddTradeListener registers a listener invoked once per command producing
// at least one Transaction. Listeners run synchronously on the caller's
// goroutine after state mutation and must not call back into the book.
func (b *OrderBook) AddTradeListener(l types.TradeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tradeListeners = append(b.tradeListeners, l)
}

// AddPriceLevelListener registers a listener invoked once per affected level
// after a command completes.
func (b *OrderBook) AddPriceLevelListener(l types.PriceLevelChangedListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levelListeners = append(b.levelListeners, l)
}

func (b *OrderBook) sideBook(side types.Side) *sidebook.SideBook {
	if side == types.Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) nextTrade() uint64 {
	b.nextTradeID++
	return b.nextTradeID
}

// dispatchTrade invokes every registered trade listener. Callers hold mu.
func (b *OrderBook) dispatchTrade(res types.TradeResult) {
	if len(res.Transactions) == 0 {
		return
	}
	obmetrics.TradesExecuted(len(res.Transactions))
	for _, l := range b.tradeListeners {
		l(res)
	}
}

// dispatchLevelChange invokes every registered level listener. Callers hold
// mu.
func (b *OrderBook) dispatchLevelChange(ev types.PriceLevelChangedEvent) {
	for _, l := range b.levelListeners {
		l(ev)
	}
}

// emitLevelEvent records whatever happened to a level after a mutation:
// removed if it pruned to empty, otherwise its new aggregate visible
// quantity. Callers hold mu.
func (b *OrderBook) emitLevelEvent(side types.Side, price types.Price) {
	sb := b.sideBook(side)
	lvl := sb.LevelAt(price)
	if lvl == nil {
		b.dispatchLevelChange(types.PriceLevelChangedEvent{Side: side, Price: price, Removed: true})
		return
	}
	b.dispatchLevelChange(types.PriceLevelChangedEvent{
		Side:     side,
		Price:    price,
		Quantity: lvl.TotalVisible(),
	})
}

// stampTimestamp fills in Timestamp from Clock if the caller left it zero
// (direct-mode orders, and every market order built by SubmitMarketOrder).
func (b *OrderBook) stampTimestamp(o *types.Order) {
	if o.Timestamp == 0 {
		o.Timestamp = b.Clock()
	}
}

// crosses reports whether an incoming order at the given side/price would
// immediately match against the opposite side's best price.
func (b *OrderBook) crosses(side types.Side, price types.Price) bool {
	opposite := b.sideBook(side.Opposite())
	best, ok := opposite.BestPrice()
	if !ok {
		return false
	}
	if side == types.Buy {
		return best.LessThan(price) || best.Equal(price)
	}
	return best.GreaterThan(price) || best.Equal(price)
}

// atOrBetter reports whether a resting price is at least as good as limit
// for a taker on the given side: for a buy taker, lower-or-equal ask prices
// are at-or-better; for a sell taker, higher-or-equal bid prices are.
func atOrBetter(side types.Side, restingPrice, limit types.Price) bool {
	if side == types.Buy {
		return restingPrice.LessThan(limit) || restingPrice.Equal(limit)
	}
	return restingPrice.GreaterThan(limit) || restingPrice.Equal(limit)
}
