// Package deadline measures how much of a cycle's time budget is left.
package deadline

import "time"

// DefaultInterval is the per-cycle budget: one 60Hz frame.
const DefaultInterval = 16 * time.Millisecond

// Clock reports the time remaining in the current cycle.
// It is not safe for concurrent use; each cycle owns its clock.
type Clock struct {
	interval time.Duration
	now      func() time.Time
	start    time.Time
}

// New creates a Clock with the given budget. A nil now uses time.Now.
func New(interval time.Duration, now func() time.Time) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	c := &Clock{interval: interval, now: now}
	c.start = now()
	return c
}

// Start restarts the budget from the current instant.
func (c *Clock) Start() {
	c.start = c.now()
}

// Remaining returns the budget minus the time elapsed since Start.
// The result goes negative once the budget is exceeded.
func (c *Clock) Remaining() time.Duration {
	return c.interval - c.now().Sub(c.start)
}

// Expired reports whether the budget has been exceeded.
func (c *Clock) Expired() bool {
	return c.Remaining() < 0
}

// Interval returns the configured budget.
func (c *Clock) Interval() time.Duration {
	return c.interval
}
