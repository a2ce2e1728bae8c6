package sidebook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glacier/internal/sidebook"
	"glacier/internal/types"
)

func addLimit(t *testing.T, book *sidebook.SideBook, price uint64, qty types.Quantity) {
	t.Helper()
	p := types.NewPrice(price)
	lvl := book.GetOrCreate(p)
	lvl.Add(&types.Order{ID: types.NewOrderId(), Type: types.LimitOrder, RemainingQuantity: qty})
	book.NoteAdded(qty)
}

func TestBidsSortedDescending(t *testing.T) {
	book := sidebook.New(types.Buy)
	addLimit(t, book, 99, 10)
	addLimit(t, book, 100, 20)
	addLimit(t, book, 98, 30)

	best, ok := book.BestPrice()
	require.True(t, ok)
	assert.Equal(t, types.NewPrice(100), best)

	levels := book.Levels()
	require.Len(t, levels, 3)
	assert.Equal(t, types.NewPrice(100), levels[0].Price())
	assert.Equal(t, types.NewPrice(99), levels[1].Price())
	assert.Equal(t, types.NewPrice(98), levels[2].Price())
}

func TestAsksSortedAscending(t *testing.T) {
	book := sidebook.New(types.Sell)
	addLimit(t, book, 101, 10)
	addLimit(t, book, 100, 20)
	addLimit(t, book, 102, 30)

	best, ok := book.BestPrice()
	require.True(t, ok)
	assert.Equal(t, types.NewPrice(100), best)
}

func TestDepthAtLevelsAndPriceAtDepth(t *testing.T) {
	book := sidebook.New(types.Buy)
	addLimit(t, book, 100, 10)
	addLimit(t, book, 99, 20)
	addLimit(t, book, 98, 30)

	assert.Equal(t, types.Quantity(30), book.TotalDepthAtLevels(2))

	price, ok := book.PriceAtDepth(25)
	require.True(t, ok)
	assert.Equal(t, types.NewPrice(99), price)

	price, cum, ok := book.CumulativeDepthToTarget(25)
	require.True(t, ok)
	assert.Equal(t, types.NewPrice(99), price)
	assert.Equal(t, types.Quantity(30), cum)
}

func TestPruneIfEmptyRemovesLevel(t *testing.T) {
	book := sidebook.New(types.Buy)
	p := types.NewPrice(100)
	lvl := book.GetOrCreate(p)
	id := types.NewOrderId()
	lvl.Add(&types.Order{ID: id, Type: types.LimitOrder, RemainingQuantity: 5})
	book.NoteAdded(5)

	lvl.Cancel(id)
	book.NoteRemoved(5)
	book.PruneIfEmpty(p)

	assert.Equal(t, 0, book.LevelCount())
	_, ok := book.BestPrice()
	assert.False(t, ok)
}

func TestTopNLevels(t *testing.T) {
	book := sidebook.New(types.Sell)
	addLimit(t, book, 103, 1)
	addLimit(t, book, 101, 1)
	addLimit(t, book, 102, 1)

	top := book.TopNLevels(2)
	require.Len(t, top, 2)
	assert.Equal(t, types.NewPrice(101), top[0].Price())
	assert.Equal(t, types.NewPrice(102), top[1].Price())
}
