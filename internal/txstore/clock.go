package txstore

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers. The store stamps
// transactions, log records and commits with them; ordering never depends on
// wall-clock time.
type Sequencer interface {
	Next() int64
}

// Clock is the default Sequencer, safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last number handed out, without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
