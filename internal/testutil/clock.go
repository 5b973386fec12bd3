package testutil

import (
	"sync"
	"time"
)

// Clock is a manually advanced time source for deterministic tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at the given instant
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current frozen time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
