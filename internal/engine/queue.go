package engine

import (
	"sync"

	"github.com/roach88/tokensale/internal/ir"
)

// commitQueue is a thread-safe FIFO of committed operations waiting to be
// persisted by the Run loop.
//
// Unbounded, so a mutating operation never blocks on the store. The
// signal channel lets Run wait with a context.
type commitQueue struct {
	mu      sync.Mutex
	commits []ir.Commit
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newCommitQueue() *commitQueue {
	return &commitQueue{
		commits: make([]ir.Commit, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds a commit to the back of the queue.
// Returns false if the queue is closed.
func (q *commitQueue) Enqueue(c ir.Commit) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.commits = append(q.commits, c)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front commit without blocking.
func (q *commitQueue) TryDequeue() (ir.Commit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commits) == 0 {
		return ir.Commit{}, false
	}
	c := q.commits[0]

	// Clear the slot so the backing array does not pin event payloads.
	q.commits[0] = ir.Commit{}
	if len(q.commits) == 1 {
		q.commits = q.commits[:0]
	} else {
		q.commits = q.commits[1:]
	}
	return c, true
}

// Wait returns a channel that signals when commits may be available.
// It is closed by Close.
func (q *commitQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commits)
}

// Drained reports whether the queue is closed and empty.
func (q *commitQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.commits) == 0
}

// Closed reports whether Close was called.
func (q *commitQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting commits and wakes the Run loop.
func (q *commitQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
