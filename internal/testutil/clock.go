package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant returned by a FixedClock built with
// NewFixedClock: 2023-11-14T22:13:20Z (1700000000000 ms).
var DefaultEpoch = time.UnixMilli(1700000000000).UTC()

// FixedClock provides a thread-safe, deterministic wall clock for tests.
//
// Each call to Now returns the current instant and then advances it by a fixed
// step, so a sequence of appends gets predictable, strictly increasing
// timestamps. The same scenario run against a fresh FixedClock produces
// byte-identical event logs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewFixedClock creates a clock starting at DefaultEpoch that advances 1ms per call.
func NewFixedClock() *FixedClock {
	return NewFixedClockAt(DefaultEpoch, time.Millisecond)
}

// NewFixedClockAt creates a clock starting at start that advances step per call.
// A zero step freezes the clock.
func NewFixedClockAt(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{start: start, now: start, step: step}
}

// Now returns the current instant and advances the clock by one step.
// Its signature matches time.Now so it can be passed as eventlog.WithClock(c.Now).
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the instant the next Now call will return, without advancing.
func (c *FixedClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start instant.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
