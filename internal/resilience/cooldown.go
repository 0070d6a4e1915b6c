package resilience

import (
	"sync"
	"time"
)

// Cooldown is a circuit breaker that never rejects work: after Threshold
// consecutive failures it reports a pause the caller should take before the
// next attempt. A success closes it again.
type Cooldown struct {
	mu        sync.Mutex
	threshold int
	pause     time.Duration
	failures  int
	trips     int
}

// NewCooldown creates a Cooldown. A threshold <= 0 disables it.
func NewCooldown(threshold int, pause time.Duration) *Cooldown {
	return &Cooldown{threshold: threshold, pause: pause}
}

// RecordSuccess resets the consecutive failure count.
func (c *Cooldown) RecordSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
}

// RecordFailure counts a failure and returns the pause to take, or zero when
// the threshold has not been reached.
func (c *Cooldown) RecordFailure() time.Duration {
	if c == nil || c.threshold <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures < c.threshold {
		return 0
	}
	c.failures = 0
	c.trips++
	return c.pause
}

// Trips returns how many times the threshold was reached.
func (c *Cooldown) Trips() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trips
}
