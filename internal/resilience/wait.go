package resilience

import (
	"math/rand/v2"
	"time"
)

// WaitPolicy is a randomized ceiling for a single presence or interaction
// wait. Each call to Budget draws a fresh value in [Min, Max] so that page
// interactions never settle into a fixed timing.
type WaitPolicy struct {
	Min time.Duration
	Max time.Duration
}

// NewWaitPolicy builds a policy from millisecond bounds, swapping them if
// they are inverted.
func NewWaitPolicy(minMs, maxMs int) WaitPolicy {
	if minMs > maxMs {
		minMs, maxMs = maxMs, minMs
	}
	return WaitPolicy{
		Min: time.Duration(minMs) * time.Millisecond,
		Max: time.Duration(maxMs) * time.Millisecond,
	}
}

// Budget returns a wait ceiling drawn uniformly from [Min, Max].
func (w WaitPolicy) Budget() time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	return w.Min + time.Duration(rand.Int64N(int64(w.Max-w.Min)+1))
}
