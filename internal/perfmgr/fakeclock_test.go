package perfmgr

import (
	"sync"
	"time"
)

// fakeClock lets tests drive NodeLooper/Node deterministically without
// real sleeps, grounded on the teacher's injected Now func() time.Time
// field in internal/neutron/reaper.go.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
