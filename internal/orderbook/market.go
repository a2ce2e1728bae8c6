package orderbook

import (
	"glacier/internal/bookerrors"
	"glacier/internal/obmetrics"
	"glacier/internal/types"
)

// SubmitMarketOrder sweeps the opposite side of the book for qty, with no
// price bound. Any quantity left unfilled when the book is exhausted is
// reported via TradeResult.Remaining and signalled with
// ErrInsufficientLiquidity; the order is never rested.
func (b *OrderBook) SubmitMarketOrder(id types.OrderId, side types.Side, qty types.Quantity) (types.TradeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if qty == 0 {
		obmetrics.OrderRejected()
		return types.TradeResult{}, bookerrors.ErrZeroQuantity
	}
	if _, exists := b.index[id]; exists {
		obmetrics.OrderRejected()
		return types.TradeResult{}, bookerrors.ErrDuplicateOrderId
	}

	o := types.Order{
		ID:                id,
		Type:              types.MarketOrder,
		Side:              side,
		RemainingQuantity: qty,
		TIF:               types.IOC,
	}
	b.stampTimestamp(&o)

	result := types.TradeResult{TakerID: id, TakerSide: side}
	b.walkOpposite(&o, &result, false)

	obmetrics.OrderAccepted()
	b.dispatchTrade(result)

	if result.Remaining > 0 {
		return result, bookerrors.ErrInsufficientLiquidity
	}
	return result, nil
}
