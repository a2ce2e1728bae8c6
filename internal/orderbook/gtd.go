package orderbook

import (
	"github.com/rs/zerolog/log"

	"glacier/internal/pricelevel"
	"glacier/internal/sidebook"
	"glacier/internal/types"
)

// purgeExpiredFromLevel removes every GTD order at lvl whose expiry has
// passed as of now: the matcher skips and removes any resting order whose
// expiry is before the current timestamp before considering it. Callers
// hold mu.
func (b *OrderBook) purgeExpiredFromLevel(side types.Side, lvl *pricelevel.PriceLevel, now types.TimestampMs) {
	var expired []types.OrderId
	lvl.Iter(func(o *types.Order) bool {
		if o.Expired(now) {
			expired = append(expired, o.ID)
		}
		return true
	})
	if len(expired) == 0 {
		return
	}

	sb := b.sideBook(side)
	for _, id := range expired {
		removed, ok := lvl.Cancel(id)
		if !ok {
			continue
		}
		sb.NoteRemoved(removed.VisibleRemaining())
		delete(b.index, id)
		log.Debug().Str("order", id.String()).Msg("expired GTD order removed during match walk")
	}
}

// ExpireGTDOrders scans the whole book and removes every GTD order whose
// expiry has passed as of now. It is the entry point for the optional
// sweeper goroutine; the core matching path also expires lazily via
// purgeExpiredFromLevel without needing this to run at all.
func (b *OrderBook) ExpireGTDOrders(now types.TimestampMs) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	count += b.expireSide(b.bids, now)
	count += b.expireSide(b.asks, now)
	return count
}

func (b *OrderBook) expireSide(sb *sidebook.SideBook, now types.TimestampMs) int {
	count := 0
	var emptied []types.Price
	sb.IterFromBest(func(lvl *pricelevel.PriceLevel) bool {
		var expired []types.OrderId
		lvl.Iter(func(o *types.Order) bool {
			if o.Expired(now) {
				expired = append(expired, o.ID)
			}
			return true
		})
		for _, id := range expired {
			removed, ok := lvl.Cancel(id)
			if !ok {
				continue
			}
			sb.NoteRemoved(removed.VisibleRemaining())
			delete(b.index, id)
			count++
		}
		if lvl.Empty() {
			emptied = append(emptied, lvl.Price())
		}
		return true
	})
	for _, p := range emptied {
		sb.PruneIfEmpty(p)
		b.emitLevelEvent(sb.Side(), p)
	}
	return count
}
