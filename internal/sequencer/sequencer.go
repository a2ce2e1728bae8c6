// Package sequencer serializes every mutating command against a single
// orderbook.OrderBook through one writer goroutine, journals each accepted
// command durably before acknowledging it, and replays the journal on
// startup to rebuild book state after a crash. The writer goroutine and its
// optional sweeper run under a tomb.Tomb, the same lifecycle shape used for
// every other long-running goroutine in this module.
package sequencer

import (
	"fmt"
	"time"

	tomb "gopkg.in/tomb.v2"

	"github.com/rs/zerolog/log"

	"glacier/internal/bookerrors"
	"glacier/internal/config"
	"glacier/internal/journal"
	"glacier/internal/obmetrics"
	"glacier/internal/orderbook"
	"glacier/internal/types"
)

// Result is returned to the caller of Submit once a command has been
// applied (or rejected).
type Result struct {
	Sequence      types.SequenceNumber
	TimestampNs   uint64
	TradeResult   types.TradeResult
	CancelResult  orderbook.CancelResult
	ModifiedOrder types.Order
	RepriceCount  int
	Err           error
}

type request struct {
	cmd   Command
	reply chan Result
}

// Sequencer owns the orderbook.OrderBook it serializes writes against, plus
// the journal those writes are durably recorded to. Construct with Open,
// start the writer goroutine with Run, submit commands with Submit.
type Sequencer struct {
	Book *orderbook.OrderBook

	cfg  config.Config
	jr   *journal.Journal
	tb   tomb.Tomb
	reqs chan request

	seq             uint64
	lastTimestampNs int64
}

// Open replays the journal at dir (if any) to rebuild symbol's order book,
// then returns a Sequencer ready to Run. The returned book reflects every
// durably-recorded command up to the last valid entry; a gap in the journal
// is a fatal recovery error (journal.Journal.ReadFrom's
// SequenceNotFoundError), not something recovery silently tolerates.
func Open(symbol string, cfg config.Config, journalDir string) (*Sequencer, error) {
	jr, err := journal.Open(journalDir, cfg)
	if err != nil {
		return nil, err
	}

	s := &Sequencer{
		Book: orderbook.New(symbol, cfg),
		cfg:  cfg,
		jr:   jr,
		reqs: make(chan request),
	}

	if err := jr.ReadFrom(0, s.applyReplayed); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the single writer goroutine (and, if enabled, the GTD sweeper
// goroutine) under s's tomb. Call Stop to shut both down cleanly.
func (s *Sequencer) Run() {
	s.tb.Go(s.writeLoop)
	if s.cfg.EnableGTDSweeper {
		s.tb.Go(s.sweepLoop)
	}
}

// Stop signals the writer (and sweeper) to exit and waits for them to
// finish, then closes the journal.
func (s *Sequencer) Stop() error {
	s.tb.Kill(nil)
	err := s.tb.Wait()
	if cerr := s.jr.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Submit enqueues cmd for the writer goroutine and blocks for its Result.
// Safe to call from any number of goroutines concurrently; the writer
// serializes all of them.
func (s *Sequencer) Submit(cmd Command) Result {
	reply := make(chan Result, 1)
	select {
	case s.reqs <- request{cmd: cmd, reply: reply}:
	case <-s.tb.Dying():
		return Result{Err: fmt.Errorf("sequencer shutting down")}
	}
	select {
	case r := <-reply:
		return r
	case <-s.tb.Dying():
		return Result{Err: fmt.Errorf("sequencer shutting down")}
	}
}

func (s *Sequencer) writeLoop() error {
	log.Info().Str("symbol", s.Book.Symbol()).Msg("sequencer writer starting")
	for {
		select {
		case <-s.tb.Dying():
			return nil
		case req := <-s.reqs:
			req.reply <- s.process(req.cmd)
		}
	}
}

func (s *Sequencer) sweepLoop() error {
	interval := time.Duration(s.cfg.GTDSweepInterval) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.tb.Dying():
			return nil
		case <-t.C:
			now := types.TimestampMs(time.Now().UnixMilli())
			if n := s.Book.ExpireGTDOrders(now); n > 0 {
				log.Debug().Int("count", n).Msg("GTD sweeper expired orders")
			}
		}
	}
}

// nextSequence and nextTimestampNs assign the next monotonic ordinals.
// Timestamps are clamped forward if the wall clock appears to have moved
// backward since the last command, so timestamp_ns stays monotonic even
// across an NTP step.
func (s *Sequencer) nextSequence() uint64 {
	s.seq++
	return s.seq
}

func (s *Sequencer) nextTimestampNs() int64 {
	now := time.Now().UnixNano()
	if now <= s.lastTimestampNs {
		now = s.lastTimestampNs + 1
	}
	s.lastTimestampNs = now
	return now
}

// process applies cmd to the book, and — only if it actually mutated state —
// journals it durably before returning the Result. Commands rejected by the
// book's own validation (duplicate id, zero quantity, post-only cross,
// unknown id, ...) leave no journal trace, since there is nothing to replay.
// Only journaled commands consume a sequence number, so the journal's
// sequence numbers stay gap-free; other Results carry Sequence 0.
func (s *Sequencer) process(cmd Command) Result {
	ts := s.nextTimestampNs()

	res := s.apply(cmd, types.TimestampMs(ts/int64(time.Millisecond)))
	res.TimestampNs = uint64(ts)

	if res.mutated {
		payload, err := encodeCommand(cmd)
		if err != nil {
			res.Err = err
			return res.Result
		}
		seq := s.nextSequence()
		res.Sequence = types.SequenceNumber(seq)
		start := time.Now()
		if err := s.jr.Append(seq, uint64(ts), payload); err != nil {
			s.seq = seq - 1
			res.Err = err
			return res.Result
		}
		obmetrics.ObserveJournalAppend(time.Since(start).Seconds())
	}
	return res.Result
}

// internalResult extends Result with a flag process needs but callers of
// Submit never see.
type internalResult struct {
	Result
	mutated bool
}

func (s *Sequencer) apply(cmd Command, nowMs types.TimestampMs) internalResult {
	switch cmd.Kind {
	case AddOrder:
		return s.applyAddOrder(cmd, nowMs)
	case CancelOrder:
		if cmd.CancelID == nil {
			return internalResult{Result: Result{Err: bookerrors.ErrUnknownOrderId}}
		}
		cr := s.Book.Cancel(*cmd.CancelID)
		return internalResult{Result: Result{CancelResult: cr}, mutated: cr.Success}
	case ModifyOrder:
		if cmd.ModifyID == nil {
			return internalResult{Result: Result{Err: bookerrors.ErrUnknownOrderId}}
		}
		updated, err := s.Book.Modify(*cmd.ModifyID, cmd.NewPrice, cmd.NewQty)
		return internalResult{Result: Result{ModifiedOrder: updated, Err: err}, mutated: err == nil}
	case RepriceAll:
		n := s.Book.RepriceSpecialOrders()
		return internalResult{Result: Result{RepriceCount: n}, mutated: true}
	case Snapshot:
		// Snapshot capture is read-only; callers use the snapshot package
		// directly against s.Book (WithReadLock gives them a consistent
		// view). Routing it through the sequencer only serializes it with
		// respect to other writers, so there is nothing here to mutate or
		// journal.
		return internalResult{}
	default:
		return internalResult{Result: Result{Err: fmt.Errorf("sequencer: unknown command kind %v", cmd.Kind)}}
	}
}

func (s *Sequencer) applyAddOrder(cmd Command, nowMs types.TimestampMs) internalResult {
	if cmd.Order == nil {
		return internalResult{Result: Result{Err: bookerrors.ErrZeroQuantity}}
	}
	o := *cmd.Order
	if o.Timestamp == 0 {
		o.Timestamp = nowMs
	}

	var tr types.TradeResult
	var err error
	mutated := false

	switch o.Type {
	case types.MarketOrder:
		tr, err = s.Book.SubmitMarketOrder(o.ID, o.Side, o.Remaining())
		mutated = err == nil || err == bookerrors.ErrInsufficientLiquidity
	case types.PeggedOrderType:
		tr, err = s.Book.AddPeggedOrder(o)
		mutated = err == nil
	case types.TrailingStopOrder:
		err = s.Book.RegisterTrailingStop(o)
		mutated = err == nil
	default:
		tr, err = s.Book.AddLimitOrder(o)
		mutated = err == nil
	}

	return internalResult{Result: Result{TradeResult: tr, Err: err}, mutated: mutated}
}

// applyReplayed feeds one journal entry back through apply during recovery,
// without re-journaling it, and advances seq/lastTimestampNs so that live
// writing resumes exactly where the journal left off.
func (s *Sequencer) applyReplayed(e journal.Entry) error {
	cmd, err := decodeCommand(e.Payload)
	if err != nil {
		return err
	}
	s.apply(cmd, types.TimestampMs(e.TimestampNs/uint64(time.Millisecond)))
	if e.Sequence > s.seq {
		s.seq = e.Sequence
	}
	if int64(e.TimestampNs) > s.lastTimestampNs {
		s.lastTimestampNs = int64(e.TimestampNs)
	}
	return nil
}
