package state

import "sync/atomic"

// Clock is a monotonically increasing revision counter. It is read from the
// network goroutines, so it is atomic even though layers are UI-thread only.
type Clock struct {
	counter atomic.Uint64
}

// Tick increments the clock and returns the new value.
func (c *Clock) Tick() uint64 {
	return c.counter.Add(1)
}

// Now returns the current value without advancing it.
func (c *Clock) Now() uint64 {
	return c.counter.Load()
}

// Witness advances the clock to at least rev and reports whether rev was
// newer than anything seen so far.
func (c *Clock) Witness(rev uint64) bool {
	for {
		cur := c.counter.Load()
		if rev <= cur {
			return false
		}
		if c.counter.CompareAndSwap(cur, rev) {
			return true
		}
	}
}
