package orderbook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glacier/internal/orderbook"
	"glacier/internal/types"
)

func TestPeggedOrder_RepricesWithBestBid(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 100, 10))
	require.NoError(t, err)

	pegged := types.NewOrderId()
	o := types.Order{
		ID:                pegged,
		Side:              types.Buy,
		PegRef:            types.PegBestBid,
		PegOffset:         -1,
		TIF:               types.GTC,
		RemainingQuantity: 10,
	}
	_, err = ob.AddPeggedOrder(o)
	require.NoError(t, err)

	resting, ok := ob.GetOrder(pegged)
	require.True(t, ok)
	assert.True(t, resting.Price.Equal(types.NewPrice(99)))

	// Best bid moves up; repricing should follow it.
	_, err = ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 105, 10))
	require.NoError(t, err)

	n := ob.RepricePeggedOrders()
	assert.Equal(t, 1, n)

	resting, ok = ob.GetOrder(pegged)
	require.True(t, ok)
	assert.True(t, resting.Price.Equal(types.NewPrice(104)))
}

func TestTrailingStop_RatchetsOnlyFavorably(t *testing.T) {
	ob := newBook()
	ob.Clock = func() types.TimestampMs { return 0 }

	stopID := types.NewOrderId()
	_, err := ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 3100, 10))
	require.NoError(t, err)

	err = ob.RegisterTrailingStop(types.Order{
		ID:                stopID,
		Side:              types.Sell,
		TrailAmount:       types.NewPrice(50),
		RemainingQuantity: 10,
	})
	require.NoError(t, err)

	ratcheted := ob.RepriceTrailingStops()
	assert.Equal(t, 1, ratcheted)

	// Best bid rises to 3200: reference ratchets up to 3200, stop becomes 3150.
	ob.Cancel(mustOnlyBid(t, ob))
	_, err = ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 3200, 10))
	require.NoError(t, err)
	ratcheted = ob.RepriceTrailingStops()
	assert.Equal(t, 1, ratcheted)

	// Best bid falls back to 3180: still above the 3150 stop, no loosening,
	// and the stop must not have triggered.
	ob.Cancel(mustOnlyBid(t, ob))
	_, err = ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 3180, 10))
	require.NoError(t, err)
	ratcheted = ob.RepriceTrailingStops()
	assert.Equal(t, 0, ratcheted, "reference must not ratchet down")

	_, stillRegistered := ob.GetOrder(stopID)
	assert.False(t, stillRegistered, "trailing stop never rests on the book itself")
}

func TestPeggedOrderCount_TracksLivePeggedOrders(t *testing.T) {
	ob := newBook()
	_, err := ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 100, 10))
	require.NoError(t, err)

	assert.Equal(t, 0, ob.PeggedOrderCount())
	assert.Empty(t, ob.PeggedOrderIDs())

	pegged := types.NewOrderId()
	_, err = ob.AddPeggedOrder(types.Order{
		ID:                pegged,
		Side:              types.Buy,
		PegRef:            types.PegBestBid,
		PegOffset:         -1,
		TIF:               types.GTC,
		RemainingQuantity: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ob.PeggedOrderCount())
	assert.Equal(t, []types.OrderId{pegged}, ob.PeggedOrderIDs())
}

func TestTrailingStopCount_TracksRegisteredStops(t *testing.T) {
	ob := newBook()
	assert.Equal(t, 0, ob.TrailingStopCount())
	assert.Empty(t, ob.TrailingStopIDs())

	stopID := types.NewOrderId()
	err := ob.RegisterTrailingStop(types.Order{
		ID:                stopID,
		Side:              types.Sell,
		TrailAmount:       types.NewPrice(50),
		RemainingQuantity: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ob.TrailingStopCount())
	assert.Equal(t, []types.OrderId{stopID}, ob.TrailingStopIDs())
}

func TestShouldTriggerTrailingStop_ReflectsCurrentMarketWithoutMutating(t *testing.T) {
	ob := newBook()
	ob.Clock = func() types.TimestampMs { return 0 }

	_, err := ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 3100, 10))
	require.NoError(t, err)

	stopID := types.NewOrderId()
	err = ob.RegisterTrailingStop(types.Order{
		ID:                stopID,
		Side:              types.Sell,
		TrailAmount:       types.NewPrice(50),
		RemainingQuantity: 10,
	})
	require.NoError(t, err)

	// Reference hasn't ratcheted yet (LastReferencePrice is zero), so no
	// reference is established, there is no stop price, and it cannot trigger.
	triggered, ok := ob.ShouldTriggerTrailingStop(stopID)
	require.True(t, ok)
	assert.False(t, triggered)

	ob.RepriceTrailingStops()

	// Best bid collapses to 3040, at/below the 3050 stop computed from the
	// ratcheted 3100 reference.
	ob.Cancel(mustOnlyBid(t, ob))
	_, err = ob.AddLimitOrder(limit(types.NewOrderId(), types.Buy, 3040, 10))
	require.NoError(t, err)

	triggered, ok = ob.ShouldTriggerTrailingStop(stopID)
	require.True(t, ok)
	assert.True(t, triggered)
	assert.Equal(t, 1, ob.TrailingStopCount(), "checking the trigger must not consume it")
}

// mustOnlyBid finds the id of the single resting bid on ob, used to clear
// the book between price moves in the trailing-stop test above.
func mustOnlyBid(t *testing.T, ob *orderbook.OrderBook) types.OrderId {
	t.Helper()
	price, ok := ob.BestBid()
	require.True(t, ok)
	var found types.OrderId
	ob.Bids().BestLevel().Iter(func(o *types.Order) bool {
		found = o.ID
		return false
	})
	_ = price
	return found
}
