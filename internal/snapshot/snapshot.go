// Package snapshot serializes an orderbook.OrderBook's resting levels into a
// versioned, checksummed payload, and restores a fresh book from one.
// Restore reconstructs one synthetic order per level rather than the
// original per-order detail: a basic Snapshot only carries level aggregates
// (price, total visible quantity), so the finest grain restore can recover
// is "this much quantity rests at this price".
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"glacier/internal/analytics"
	"glacier/internal/bookerrors"
	"glacier/internal/config"
	"glacier/internal/orderbook"
	"glacier/internal/sidebook"
	"glacier/internal/types"
)

// LevelSnapshot is one side's resting level, reduced to its aggregate.
type LevelSnapshot struct {
	Price    decimalTicks `json:"price"`
	Quantity uint64       `json:"quantity"`
}

// Snapshot is the wire/on-disk representation of an OrderBook's state at a
// point in time.
type Snapshot struct {
	FormatVersion  int64           `json:"format_version"`
	Symbol         string          `json:"symbol"`
	TimestampMs    uint64          `json:"timestamp_ms"`
	Bids           []LevelSnapshot `json:"bids"`
	Asks           []LevelSnapshot `json:"asks"`
	HaveLastTrade  bool            `json:"have_last_trade"`
	LastTradePrice decimalTicks    `json:"last_trade_price,omitempty"`
	Checksum       string          `json:"checksum"`
}

// EnrichedFlags selects which derived analytics fields EnrichedSnapshot
// computes: a MID|SPREAD|DEPTH|VWAP|IMBALANCE bitset.
type EnrichedFlags uint8

const (
	FlagMid EnrichedFlags = 1 << iota
	FlagSpread
	FlagDepth
	FlagVWAP
	FlagImbalance
)

// Enriched wraps a base Snapshot with optional derived fields. Zero
// values in the unrequested fields are not meaningful; check the flag that
// was passed to EnrichedSnapshotOf before reading one.
type Enriched struct {
	Snapshot

	MidPrice         float64 `json:"mid_price,omitempty"`
	SpreadAbsolute   uint64  `json:"spread_absolute,omitempty"`
	SpreadBps        float64 `json:"spread_bps,omitempty"`
	BidDepthTop      uint64  `json:"bid_depth_top,omitempty"`
	AskDepthTop      uint64  `json:"ask_depth_top,omitempty"`
	VWAPBuyForDepth  float64 `json:"vwap_buy_for_depth,omitempty"`
	VWAPSellForDepth float64 `json:"vwap_sell_for_depth,omitempty"`
	Imbalance        float64 `json:"imbalance,omitempty"`
}

// Capture takes a consistent snapshot of every resting level on both sides
// of ob, at the given config's format version.
func Capture(ob *orderbook.OrderBook, cfg config.Config, nowMs types.TimestampMs) Snapshot {
	var snap Snapshot
	ob.WithReadLock(func() {
		snap = Snapshot{
			FormatVersion: int64(cfg.SnapshotFormatVersion),
			Symbol:        ob.Symbol(),
			TimestampMs:   uint64(nowMs),
			Bids:          levelSnapshots(ob.Bids()),
			Asks:          levelSnapshots(ob.Asks()),
		}
	})
	if p, ok := ob.LastTradePrice(); ok {
		snap.HaveLastTrade = true
		snap.LastTradePrice = decimalTicks(p)
	}
	snap.Checksum = checksum(snap)
	return snap
}

func levelSnapshots(sb *sidebook.SideBook) []LevelSnapshot {
	levels := sb.Levels()
	out := make([]LevelSnapshot, len(levels))
	for i, lvl := range levels {
		out[i] = LevelSnapshot{Price: decimalTicks(lvl.Price()), Quantity: uint64(lvl.TotalVisible())}
	}
	return out
}

// EnrichedSnapshotOf captures ob and attaches the analytics fields selected
// by flags. depth is the number of levels used for both the imbalance window
// and BidDepthTop/AskDepthTop; vwapQty is the quantity probed for
// VWAPBuyForDepth/VWAPSellForDepth.
func EnrichedSnapshotOf(ob *orderbook.OrderBook, cfg config.Config, nowMs types.TimestampMs, flags EnrichedFlags, depth int, vwapQty types.Quantity) Enriched {
	e := Enriched{Snapshot: Capture(ob, cfg, nowMs)}

	if flags&FlagMid != 0 {
		if mid, ok := analytics.MidPrice(ob); ok {
			e.MidPrice = mid
		}
	}
	if flags&FlagSpread != 0 {
		if spread, ok := analytics.SpreadAbsolute(ob); ok {
			e.SpreadAbsolute = uint64(spread.Lo)
		}
		if bps, ok := analytics.SpreadBps(ob, cfg); ok {
			e.SpreadBps = bps
		}
	}
	if flags&FlagDepth != 0 {
		ob.WithReadLock(func() {
			e.BidDepthTop = uint64(ob.Bids().TotalDepthAtLevels(depth))
			e.AskDepthTop = uint64(ob.Asks().TotalDepthAtLevels(depth))
		})
	}
	if flags&FlagVWAP != 0 {
		if v, ok := analytics.VWAP(ob, types.Buy, vwapQty); ok {
			e.VWAPBuyForDepth = v
		}
		if v, ok := analytics.VWAP(ob, types.Sell, vwapQty); ok {
			e.VWAPSellForDepth = v
		}
	}
	if flags&FlagImbalance != 0 {
		if imb, ok := analytics.OrderBookImbalance(ob, depth); ok {
			e.Imbalance = imb
		}
	}
	return e
}

// Restore builds a fresh OrderBook from snap, validating its format version
// and checksum first; it does not check the symbol (RestoreSymbolChecked
// does). Each level is reinstated as a single synthetic
// GTC limit order carrying that level's aggregate quantity; per-order
// identity and arrival order within a level are not recoverable from a
// basic Snapshot.
func Restore(snap Snapshot, cfg config.Config) (*orderbook.OrderBook, error) {
	if snap.FormatVersion != int64(cfg.SnapshotFormatVersion) {
		return nil, bookerrors.ErrVersionMismatch
	}
	want := snap.Checksum
	snap.Checksum = ""
	if checksum(snap) != want {
		return nil, bookerrors.ErrChecksumMismatch
	}
	snap.Checksum = want

	ob := orderbook.New(snap.Symbol, cfg)
	for _, lvl := range snap.Bids {
		if err := restoreLevel(ob, types.Buy, lvl); err != nil {
			return nil, err
		}
	}
	for _, lvl := range snap.Asks {
		if err := restoreLevel(ob, types.Sell, lvl); err != nil {
			return nil, err
		}
	}
	return ob, nil
}

func restoreLevel(ob *orderbook.OrderBook, side types.Side, lvl LevelSnapshot) error {
	if lvl.Quantity == 0 {
		return nil
	}
	o := types.Order{
		ID:                types.NewOrderId(),
		Type:              types.LimitOrder,
		Side:              side,
		Price:             types.Price(lvl.Price),
		RemainingQuantity: types.Quantity(lvl.Quantity),
		TIF:               types.GTC,
	}
	_, err := ob.AddLimitOrder(o)
	return err
}

// RestoreSymbolChecked is like Restore but additionally rejects a snapshot
// whose Symbol does not match want, for callers recovering a specific
// book's journal where a mismatched snapshot indicates operator error.
func RestoreSymbolChecked(snap Snapshot, cfg config.Config, want string) (*orderbook.OrderBook, error) {
	if snap.Symbol != want {
		return nil, bookerrors.ErrSymbolMismatch
	}
	return Restore(snap, cfg)
}

func checksum(snap Snapshot) string {
	snap.Checksum = ""
	b, err := json.Marshal(snap)
	if err != nil {
		// Snapshot's fields are all plain data; Marshal cannot fail here.
		panic(fmt.Sprintf("snapshot: unexpected marshal failure: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
