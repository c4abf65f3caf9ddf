package engine

import "sync/atomic"

// Sequencer stamps measurements with strictly increasing sequence
// numbers. Implementations must be safe for concurrent use.
type Sequencer interface {
	Next() int64
}

// Clock is the monotonic logical clock stamping measurements.
//
// Every inserted measurement carries a strictly increasing seq number
// from this clock, so the audit order of a run is explicit and does not
// depend on wall-clock timing between workers.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when resuming a run from a persisted store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
