package snapshot_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glacier/internal/bookerrors"
	"glacier/internal/config"
	"glacier/internal/orderbook"
	"glacier/internal/snapshot"
	"glacier/internal/types"
)

func bookWithLevels() *orderbook.OrderBook {
	ob := orderbook.New("BTC-USD", config.DefaultConfig())
	ob.AddLimitOrder(types.Order{
		ID: types.NewOrderId(), Type: types.LimitOrder, Side: types.Buy,
		Price: types.NewPrice(100), RemainingQuantity: 10, TIF: types.GTC,
	})
	ob.AddLimitOrder(types.Order{
		ID: types.NewOrderId(), Type: types.LimitOrder, Side: types.Buy,
		Price: types.NewPrice(99), RemainingQuantity: 7, TIF: types.GTC,
	})
	ob.AddLimitOrder(types.Order{
		ID: types.NewOrderId(), Type: types.LimitOrder, Side: types.Sell,
		Price: types.NewPrice(101), RemainingQuantity: 12, TIF: types.GTC,
	})
	return ob
}

func TestCapture_ProducesConsistentChecksum(t *testing.T) {
	cfg := config.DefaultConfig()
	ob := bookWithLevels()

	snap := snapshot.Capture(ob, cfg, types.TimestampMs(1234))
	require.NotEmpty(t, snap.Checksum)
	assert.Equal(t, "BTC-USD", snap.Symbol)
	assert.Len(t, snap.Bids, 2)
	assert.Len(t, snap.Asks, 1)
}

func TestSnapshot_JSONRoundTripAndRestore(t *testing.T) {
	cfg := config.DefaultConfig()
	ob := bookWithLevels()
	snap := snapshot.Capture(ob, cfg, types.TimestampMs(1234))

	b, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded snapshot.Snapshot
	require.NoError(t, json.Unmarshal(b, &decoded))

	restored, err := snapshot.Restore(decoded, cfg)
	require.NoError(t, err)

	bid, ok := restored.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(types.NewPrice(100)))

	ask, ok := restored.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(types.NewPrice(101)))

	lvl := restored.Bids().LevelAt(types.NewPrice(99))
	require.NotNil(t, lvl)
	assert.Equal(t, types.Quantity(7), lvl.TotalVisible())
}

func TestRestore_RejectsChecksumMismatch(t *testing.T) {
	cfg := config.DefaultConfig()
	ob := bookWithLevels()
	snap := snapshot.Capture(ob, cfg, types.TimestampMs(1234))

	snap.Checksum = "tampered"
	_, err := snapshot.Restore(snap, cfg)
	assert.ErrorIs(t, err, bookerrors.ErrChecksumMismatch)
}

func TestRestore_RejectsVersionMismatch(t *testing.T) {
	cfg := config.DefaultConfig()
	ob := bookWithLevels()
	snap := snapshot.Capture(ob, cfg, types.TimestampMs(1234))

	badCfg := cfg
	badCfg.SnapshotFormatVersion = cfg.SnapshotFormatVersion + 1
	_, err := snapshot.Restore(snap, badCfg)
	assert.ErrorIs(t, err, bookerrors.ErrVersionMismatch)
}

func TestRestoreSymbolChecked_RejectsMismatchedSymbol(t *testing.T) {
	cfg := config.DefaultConfig()
	ob := bookWithLevels()
	snap := snapshot.Capture(ob, cfg, types.TimestampMs(1234))

	_, err := snapshot.RestoreSymbolChecked(snap, cfg, "ETH-USD")
	assert.ErrorIs(t, err, bookerrors.ErrSymbolMismatch)
}

func TestEnrichedSnapshotOf_PopulatesOnlyRequestedFields(t *testing.T) {
	cfg := config.DefaultConfig()
	ob := bookWithLevels()

	e := snapshot.EnrichedSnapshotOf(ob, cfg, types.TimestampMs(1), snapshot.FlagMid|snapshot.FlagSpread, 5, 10)
	assert.NotZero(t, e.MidPrice)
	assert.NotZero(t, e.SpreadBps)
	assert.Zero(t, e.Imbalance)
	assert.Zero(t, e.VWAPBuyForDepth)
}
