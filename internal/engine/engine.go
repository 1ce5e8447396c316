package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/ledger"
)

// CommitWriter persists committed operations. Implemented by store.Store.
type CommitWriter interface {
	WriteCommit(ctx context.Context, c ir.Commit) error
}

// Subscriber receives every commit after it has been persisted, in seq
// order, on the Run goroutine. It must not call back into mutating engine
// operations.
type Subscriber func(ir.Commit)

// Engine is the token-sale ledger engine.
//
// Thread-safety model:
//   - Mutating operations (Create, Buy, ...) take the write lock, run to
//     completion in memory, and hand their Commit to the queue. They never
//     wait on the store.
//   - Reads take the read lock and always see the latest committed state.
//   - Run must be called from exactly one goroutine; it persists commits in
//     seq order and notifies subscribers.
//
// Two concurrent operations are strictly ordered: the second observes every
// effect of the first.
type Engine struct {
	mu     sync.RWMutex
	params Params
	state  *ledger.State
	clock  *Clock
	tokens TxTokenGenerator
	queue  *commitQueue

	writer  CommitWriter
	subsMu  sync.Mutex
	subs    []Subscriber
	errMu   sync.Mutex
	lastErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithWriter persists commits through w in the Run loop.
func WithWriter(w CommitWriter) Option {
	return func(e *Engine) { e.writer = w }
}

// WithTxTokens overrides the UUIDv7 tx token generator.
func WithTxTokens(g TxTokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithClock positions the logical clock, for resuming after replay.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// withState starts from a rebuilt ledger. Only Replay uses it.
func withState(s *ledger.State) Option {
	return func(e *Engine) { e.state = s }
}

// New creates an engine with an empty ledger owned by params.Owner.
func New(params Params, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		params: params,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		queue:  newCommitQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.state == nil {
		e.state = ledger.New(params.Owner)
	}
	return e, nil
}

// Subscribe registers fn for every future commit.
func (e *Engine) Subscribe(fn Subscriber) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	e.subs = append(e.subs, fn)
}

// Run persists and publishes commits until the context is cancelled or
// Stop is called. After Stop, Run drains the queue before returning nil.
//
// ERROR HANDLING: a commit that fails to persist is logged with its tx
// token and seq range and processing continues; the in-memory ledger is
// authoritative and the gap is visible to Replay/verify. LastError reports
// the most recent failure.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "seq", e.clock.Current())

	for {
		c, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, c)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled", "pending", e.queue.Len())
			e.Stop()
			return ctx.Err()

		case <-e.queue.Wait():
			// A stale signal can arrive with the queue empty; only a
			// closed and drained queue ends the loop.
			if e.queue.Drained() {
				slog.Info("engine stopping: queue closed", "seq", e.clock.Current())
				return nil
			}
		}
	}
}

// Stop stops accepting mutating operations. Run drains what is queued and
// returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Close()
}

// LastError returns the most recent persistence failure, if any.
func (e *Engine) LastError() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErr
}

// process is called only from the Run goroutine.
func (e *Engine) process(ctx context.Context, c ir.Commit) {
	if e.writer != nil {
		if err := e.writer.WriteCommit(ctx, c); err != nil {
			logCommitError(c, err)
			e.errMu.Lock()
			e.lastErr = fmt.Errorf("persist %s (tx=%s): %w", c.Op, c.TxToken, err)
			e.errMu.Unlock()
			return
		}
	}

	e.subsMu.Lock()
	subs := append([]Subscriber(nil), e.subs...)
	e.subsMu.Unlock()
	for _, fn := range subs {
		fn(c)
	}
}

func logCommitError(c ir.Commit, err error) {
	first, last := int64(0), c.LastSeq()
	if len(c.Events) > 0 {
		first = c.Events[0].Seq
	}
	slog.Error("commit persistence failed",
		"op", c.Op,
		"tx_token", c.TxToken,
		"first_seq", first,
		"last_seq", last,
		"events", len(c.Events),
		"error", err,
	)
}
