package engine

import "sync/atomic"

// Clock hands out event seq numbers. The engine draws from it only while
// applying an operation that will commit, so the log has no gaps.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return NewClockAt(0)
}

// NewClockAt returns a clock that continues after last, the seq of the
// newest persisted event.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.seq.Store(last)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current is the most recently issued seq, 0 if none.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
