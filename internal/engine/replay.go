package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/ledger"
)

// EventSource reads the persisted event log in seq order.
// Implemented by store.Store.
type EventSource interface {
	ReadEvents(ctx context.Context, afterSeq int64) ([]ir.Event, error)
}

// Replay rebuilds an engine from the event log.
//
// Every event goes through the same apply path live operations use, so the
// rebuilt ledger equals the one that produced the log. Event ids are
// recomputed and seqs must be contiguous from 1; any mismatch aborts with
// the offending seq. The returned engine's clock resumes after the last
// event.
func Replay(ctx context.Context, params Params, src EventSource, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	events, err := src.ReadEvents(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("replay: read events: %w", err)
	}

	state := ledger.New(params.Owner)
	var last int64
	for i := 0; i < len(events); {
		// Events of one operation share a tx token and commit together.
		tx := state.Begin()
		token := events[i].TxToken
		for ; i < len(events) && events[i].TxToken == token; i++ {
			ev := events[i]
			if ev.Seq != last+1 {
				return nil, fmt.Errorf("replay: seq gap: expected %d, found %d", last+1, ev.Seq)
			}
			if err := ev.VerifyID(); err != nil {
				return nil, fmt.Errorf("replay: %w", err)
			}
			if err := apply(tx, ev.Kind, ev.Asset, ev.Payload); err != nil {
				return nil, fmt.Errorf("replay: seq=%d kind=%s: %w", ev.Seq, ev.Kind, err)
			}
			last = ev.Seq
		}
		tx.Commit()
	}

	slog.Info("replay complete", "events", len(events), "seq", last, "sales", state.SaleCount())

	opts = append([]Option{WithClock(NewClockAt(last))}, opts...)
	opts = append(opts, withState(state))
	return New(params, opts...)
}
