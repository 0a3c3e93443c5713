package resilience

import "time"

// RetryPolicy is a bounded fixed-delay retry schedule.
//
// MaxAttempts counts retries after the first try; zero disables retrying.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the reconnection schedule of the real-time channel.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Delay:       time.Second,
	}
}

// Next reports the delay before retry number attempt (1-based) and whether
// that retry is allowed at all.
func (p RetryPolicy) Next(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > p.MaxAttempts {
		return 0, false
	}
	return p.Delay, true
}

// Exhausted reports whether attempt retries have used up the policy.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
