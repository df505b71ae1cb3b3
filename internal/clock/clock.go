// Package clock provides the pausable elapsed-time accumulator that backs a
// play session. time.Now carries a monotonic reading on every supported
// platform, so wall-clock jumps do not leak into elapsed time; deltas are
// still clamped at zero in case the source is ever non-monotonic.
package clock

import "time"

type Clock struct {
	now         func() time.Time
	accumulated time.Duration
	startedAt   time.Time
	running     bool
}

// New returns a stopped clock with zero accumulated time. A nil now falls
// back to time.Now; tests inject a fake.
func New(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Start begins accumulating. Calling Start on a running clock is a no-op.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.startedAt = c.now()
	c.running = true
}

// Pause folds the current run segment into the accumulator. Idempotent.
func (c *Clock) Pause() {
	if !c.running {
		return
	}
	c.accumulated += c.sinceStart()
	c.running = false
}

// Resume continues accumulating after a Pause. Idempotent.
func (c *Clock) Resume() {
	if c.running {
		return
	}
	c.startedAt = c.now()
	c.running = true
}

// Reset stops the clock and clears all accumulated time.
func (c *Clock) Reset() {
	c.accumulated = 0
	c.running = false
	c.startedAt = time.Time{}
}

// Elapsed reports whole seconds of running time accumulated so far.
func (c *Clock) Elapsed() int {
	total := c.accumulated
	if c.running {
		total += c.sinceStart()
	}
	return int(total / time.Second)
}

func (c *Clock) Running() bool { return c.running }

func (c *Clock) sinceStart() time.Duration {
	d := c.now().Sub(c.startedAt)
	if d < 0 {
		return 0
	}
	return d
}
