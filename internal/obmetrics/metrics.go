// Package obmetrics instruments the book and sequencer with counters and
// histograms via github.com/VictoriaMetrics/metrics rather than rolling
// hand-written counters.
package obmetrics

import (
	"github.com/VictoriaMetrics/metrics"
)

var (
	ordersAccepted = metrics.NewCounter(`glacier_orders_accepted_total`)
	ordersRejected = metrics.NewCounter(`glacier_orders_rejected_total`)
	tradesExecuted = metrics.NewCounter(`glacier_trades_executed_total`)
	cancelsOK      = metrics.NewCounter(`glacier_cancels_total`)
	cancelsMissing = metrics.NewCounter(`glacier_cancels_not_found_total`)

	journalAppendSeconds = metrics.NewHistogram(`glacier_journal_append_seconds`)
	matchWalkLevels      = metrics.NewHistogram(`glacier_match_walk_levels`)
)

// OrderAccepted increments the accepted-order counter.
func OrderAccepted() { ordersAccepted.Inc() }

// OrderRejected increments the rejected-order counter.
func OrderRejected() { ordersRejected.Inc() }

// TradesExecuted adds n to the executed-trade counter.
func TradesExecuted(n int) { tradesExecuted.Add(n) }

// CancelResult records whether a cancel found its target.
func CancelResult(found bool) {
	if found {
		cancelsOK.Inc()
		return
	}
	cancelsMissing.Inc()
}

// ObserveJournalAppend records how long a durable journal append took, in
// seconds.
func ObserveJournalAppend(seconds float64) { journalAppendSeconds.Update(seconds) }

// ObserveMatchWalkLevels records how many price levels a single match walk
// touched, useful for spotting thin-book pathologies.
func ObserveMatchWalkLevels(n int) { matchWalkLevels.Update(float64(n)) }
