package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glacier/internal/analytics"
	"glacier/internal/config"
	"glacier/internal/orderbook"
	"glacier/internal/types"
)

func newBook() *orderbook.OrderBook {
	return orderbook.New("BTC-USD", config.DefaultConfig())
}

func limit(side types.Side, price uint64, qty uint64) types.Order {
	return types.Order{
		ID:                types.NewOrderId(),
		Type:              types.LimitOrder,
		Side:              side,
		Price:             types.NewPrice(price),
		RemainingQuantity: types.Quantity(qty),
		TIF:               types.GTC,
	}
}

func TestMidPrice_AveragesBestBidAndAsk(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Buy, 100, 10))
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(limit(types.Sell, 110, 10))
	require.NoError(t, err)

	mid, ok := analytics.MidPrice(ob)
	require.True(t, ok)
	assert.Equal(t, 105.0, mid)
}

func TestMidPrice_FalseWhenOneSideEmpty(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Buy, 100, 10))
	require.NoError(t, err)

	_, ok := analytics.MidPrice(ob)
	assert.False(t, ok)
}

func TestSpreadBps_ScalesByConfiguredMultiplier(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Buy, 10000, 10))
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(limit(types.Sell, 10010, 10))
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.SpreadBpsMultiplier = 10000

	bps, ok := analytics.SpreadBps(ob, cfg)
	require.True(t, ok)
	// spread = 10, mid = 10005, bps = (10/10005)*10000 ~= 9.995
	assert.InDelta(t, 9.995, bps, 0.01)
}

func TestMicroPrice_WeightsTowardThinnerSide(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Buy, 100, 100))
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(limit(types.Sell, 110, 10))
	require.NoError(t, err)

	micro, ok := analytics.MicroPrice(ob)
	require.True(t, ok)
	// heavy bid volume should pull the micro price toward the ask
	mid, _ := analytics.MidPrice(ob)
	assert.Greater(t, micro, mid)
}

func TestOrderBookImbalance_PositiveWhenBidHeavy(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Buy, 100, 80))
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(limit(types.Sell, 110, 20))
	require.NoError(t, err)

	imb, ok := analytics.OrderBookImbalance(ob, 5)
	require.True(t, ok)
	assert.InDelta(t, 0.6, imb, 1e-9)
}

func TestVWAP_WalksOppositeSide(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Sell, 100, 5))
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(limit(types.Sell, 101, 5))
	require.NoError(t, err)

	vwap, ok := analytics.VWAP(ob, types.Buy, 10)
	require.True(t, ok)
	assert.InDelta(t, 100.5, vwap, 1e-9)
}

func TestVWAP_FalseWhenNoLiquidity(t *testing.T) {
	ob := newBook()
	_, ok := analytics.VWAP(ob, types.Buy, 10)
	assert.False(t, ok)
}

func TestMarketImpact_ReportsSlippageAndLevels(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Sell, 100, 5))
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(limit(types.Sell, 102, 5))
	require.NoError(t, err)

	impact, ok := analytics.MarketImpact(ob, types.Buy, 10)
	require.True(t, ok)
	assert.Equal(t, 2, impact.LevelsConsumed)
	assert.InDelta(t, 101.0, impact.AvgPrice, 1e-9)
	assert.InDelta(t, 102.0, impact.WorstPrice, 1e-9)
	assert.Greater(t, impact.SlippageAbsolute, 0.0)
	assert.Equal(t, types.Quantity(10), impact.TotalQuantityAvailable)
}

func TestMarketImpact_FalseWhenOppositeSideEmpty(t *testing.T) {
	ob := newBook()
	_, ok := analytics.MarketImpact(ob, types.Buy, 10)
	assert.False(t, ok)
}

func TestFindLevel_ReportsPresenceAndAbsence(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Buy, 100, 10))
	require.NoError(t, err)

	lvl, ok := analytics.FindLevel(ob.Bids(), types.NewPrice(100))
	require.True(t, ok)
	assert.Equal(t, types.Quantity(10), lvl.TotalVisible())

	_, ok = analytics.FindLevel(ob.Bids(), types.NewPrice(999))
	assert.False(t, ok)
}

func setupDepthBook(t *testing.T) *orderbook.OrderBook {
	t.Helper()
	ob := newBook()
	for _, o := range []struct {
		price, qty uint64
	}{{100, 10}, {99, 20}, {98, 30}, {97, 40}, {96, 50}} {
		_, err := ob.AddLimitOrder(limit(types.Buy, o.price, o.qty))
		require.NoError(t, err)
	}
	for _, o := range []struct {
		price, qty uint64
	}{{101, 15}, {102, 25}, {103, 35}, {104, 45}} {
		_, err := ob.AddLimitOrder(limit(types.Sell, o.price, o.qty))
		require.NoError(t, err)
	}
	return ob
}

func TestDepthStatisticsFor_BuySideBasic(t *testing.T) {
	ob := setupDepthBook(t)

	stats := analytics.DepthStatisticsFor(ob, types.Buy, 5)
	assert.Equal(t, types.Quantity(150), stats.TotalVolume)
	assert.Equal(t, 5, stats.LevelsCount)
	assert.Equal(t, 30.0, stats.AvgLevelSize)
	assert.Equal(t, types.Quantity(10), stats.MinLevelSize)
	assert.Equal(t, types.Quantity(50), stats.MaxLevelSize)
}

func TestDepthStatisticsFor_WeightedAvgPrice(t *testing.T) {
	ob := setupDepthBook(t)

	stats := analytics.DepthStatisticsFor(ob, types.Buy, 3)
	// (100*10 + 99*20 + 98*30) / 60 = 98.666...
	assert.InDelta(t, 98.666, stats.WeightedAvgPrice, 0.01)
}

func TestDepthStatisticsFor_ZeroMeansAllLevels(t *testing.T) {
	ob := setupDepthBook(t)

	stats := analytics.DepthStatisticsFor(ob, types.Buy, 0)
	assert.Equal(t, types.Quantity(150), stats.TotalVolume)
	assert.Equal(t, 5, stats.LevelsCount)
}

func TestDepthStatisticsFor_EmptyBookIsEmpty(t *testing.T) {
	ob := newBook()

	stats := analytics.DepthStatisticsFor(ob, types.Buy, 10)
	assert.True(t, stats.IsEmpty())
}

func TestBuySellPressure_MatchesPerSideVolume(t *testing.T) {
	ob := setupDepthBook(t)

	buy, sell := analytics.BuySellPressure(ob)
	assert.Equal(t, types.Quantity(150), buy)
	assert.Equal(t, types.Quantity(120), sell)
}

func TestSimulateMarketOrder_PartialFillReportsShortfall(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.Sell, 100, 5))
	require.NoError(t, err)

	sim := analytics.SimulateMarketOrder(ob, types.Buy, 10)
	assert.Equal(t, types.Quantity(5), sim.FillableQuantity)
	assert.False(t, sim.FullyFilled)
	assert.InDelta(t, 100.0, sim.AvgPrice, 1e-9)

	_, ok := ob.BestAsk()
	assert.True(t, ok, "simulation must not mutate the book")
}
