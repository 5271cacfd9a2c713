package engine

import "sync/atomic"

// Clock is a monotonic logical counter. The engine keeps two: one counting
// cycles, read by measurement code, and one sequencing trace records.
//
// Safe for concurrent use.
type Clock struct {
	n atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.n.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.n.Add(1)
}

// Current returns the current value.
func (c *Clock) Current() int64 {
	return c.n.Load()
}

// AdvanceTo moves the clock forward to at. It never moves backwards.
func (c *Clock) AdvanceTo(at int64) {
	for {
		cur := c.n.Load()
		if at <= cur || c.n.CompareAndSwap(cur, at) {
			return
		}
	}
}
