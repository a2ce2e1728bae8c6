package pricelevel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glacier/internal/pricelevel"
	"glacier/internal/types"
)

func limitOrder(id types.OrderId, qty types.Quantity) *types.Order {
	return &types.Order{
		ID:                id,
		Type:              types.LimitOrder,
		Side:              types.Buy,
		RemainingQuantity: qty,
	}
}

func icebergOrder(id types.OrderId, visible, hidden types.Quantity) *types.Order {
	return &types.Order{
		ID:                 id,
		Type:               types.IcebergOrder,
		Side:               types.Sell,
		VisibleQuantity:    visible,
		HiddenQuantity:     hidden,
		OriginalVisibleQty: visible,
	}
}

func tradeIDSeq() func() uint64 {
	var n uint64
	return func() uint64 { n++; return n }
}

func TestAddAndAggregates(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	a, b := types.NewOrderId(), types.NewOrderId()
	lvl.Add(limitOrder(a, 10))
	lvl.Add(limitOrder(b, 5))

	assert.Equal(t, types.Quantity(15), lvl.TotalVisible())
	assert.Equal(t, 2, lvl.OrderCount())
	assert.Equal(t, types.SequenceNumber(1), lvl.OrderSnapshots()[0].Sequence)
	assert.Equal(t, types.SequenceNumber(2), lvl.OrderSnapshots()[1].Sequence)
}

func TestCancelPreservesOrder(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	a, b, c := types.NewOrderId(), types.NewOrderId(), types.NewOrderId()
	lvl.Add(limitOrder(a, 10))
	lvl.Add(limitOrder(b, 5))
	lvl.Add(limitOrder(c, 7))

	removed, ok := lvl.Cancel(b)
	require.True(t, ok)
	assert.Equal(t, types.Quantity(5), removed.RemainingQuantity)

	remaining := lvl.OrderSnapshots()
	require.Len(t, remaining, 2)
	assert.Equal(t, a, remaining[0].ID)
	assert.Equal(t, c, remaining[1].ID)
	assert.Equal(t, types.Quantity(17), lvl.TotalVisible())
}

func TestCancelUnknownIsNotFound(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	lvl.Add(limitOrder(types.NewOrderId(), 10))

	_, ok := lvl.Cancel(types.NewOrderId())
	assert.False(t, ok)
	assert.Equal(t, types.Quantity(10), lvl.TotalVisible())
}

func TestMatchAgainstPartialFillRetainsPriority(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	head := types.NewOrderId()
	lvl.Add(limitOrder(head, 10))

	taker := types.NewOrderId()
	res := lvl.MatchAgainst(taker, 4, 0, tradeIDSeq())

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, types.Quantity(4), res.Executed)
	assert.Equal(t, head, res.Transactions[0].MakerID)

	remaining := lvl.OrderSnapshots()
	require.Len(t, remaining, 1)
	assert.Equal(t, head, remaining[0].ID)
	assert.Equal(t, types.Quantity(6), remaining[0].RemainingQuantity)
}

func TestMatchAgainstFullyConsumesAndAdvances(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	a, b := types.NewOrderId(), types.NewOrderId()
	lvl.Add(limitOrder(a, 4))
	lvl.Add(limitOrder(b, 10))

	res := lvl.MatchAgainst(types.NewOrderId(), 6, 0, tradeIDSeq())

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, a, res.Transactions[0].MakerID)
	assert.Equal(t, types.Quantity(4), res.Transactions[0].Quantity)
	assert.Equal(t, b, res.Transactions[1].MakerID)
	assert.Equal(t, types.Quantity(2), res.Transactions[1].Quantity)
	assert.Equal(t, types.Quantity(6), res.Executed)

	assert.Equal(t, 1, lvl.OrderCount())
	assert.Equal(t, types.Quantity(8), lvl.TotalVisible())
}

func TestIcebergRefreshMovesToTailAndPreservesRemaining(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	iceberg := icebergOrder(types.NewOrderId(), 5, 20)
	other := limitOrder(types.NewOrderId(), 3)
	lvl.Add(iceberg)
	lvl.Add(other)

	preFillRemaining := iceberg.Remaining()

	res := lvl.MatchAgainst(types.NewOrderId(), 5, 0, tradeIDSeq())
	assert.Equal(t, types.Quantity(5), res.Executed)

	snaps := lvl.OrderSnapshots()
	require.Len(t, snaps, 2)
	// other now at head, refreshed iceberg moved to tail.
	assert.Equal(t, other.ID, snaps[0].ID)
	assert.Equal(t, iceberg.ID, snaps[1].ID)
	assert.Equal(t, preFillRemaining-5, snaps[1].Remaining())
	assert.Equal(t, types.Quantity(5), snaps[1].VisibleQuantity)
	assert.Equal(t, types.Quantity(15), snaps[1].HiddenQuantity)
}

func TestIcebergDropsWhenHiddenExhausted(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	iceberg := icebergOrder(types.NewOrderId(), 5, 0)
	lvl.Add(iceberg)

	res := lvl.MatchAgainst(types.NewOrderId(), 5, 0, tradeIDSeq())
	assert.Equal(t, types.Quantity(5), res.Executed)
	assert.True(t, lvl.Empty())
}

func TestMatchAgainstRespectsConfiguredRefreshSize(t *testing.T) {
	lvl := pricelevel.New(types.NewPrice(100))
	iceberg := icebergOrder(types.NewOrderId(), 5, 20)
	lvl.Add(iceberg)

	lvl.MatchAgainst(types.NewOrderId(), 5, 2, tradeIDSeq())

	snaps := lvl.OrderSnapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, types.Quantity(2), snaps[0].VisibleQuantity)
	assert.Equal(t, types.Quantity(18), snaps[0].HiddenQuantity)
}
