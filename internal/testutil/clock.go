package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant a DeterministicClock starts from.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe test clock that advances one step per
// reading. It satisfies eventlog.Clock.
//
// Reading N returns Epoch + N*Step, so the same scenario always produces the
// same timestamps and therefore the same audit hashes.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	step time.Duration
	base time.Time
}

// NewDeterministicClock creates a clock at Epoch advancing one second per reading.
//
// The first call to Now() returns Epoch + 1s.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Second, base: Epoch}
}

// Now advances the clock and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	return c.at(c.Next())
}

// Next increments and returns the reading count.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the reading count without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to Epoch.
//
// Used for test reuse. After Reset(), the next Now() returns Epoch + 1s again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// Rewind moves the clock base back by d without touching the reading count.
// Used to simulate a wall clock that jumps backwards.
func (c *DeterministicClock) Rewind(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = c.base.Add(-d)
}

func (c *DeterministicClock) at(n int64) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Add(time.Duration(n) * c.step)
}
