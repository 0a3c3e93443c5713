package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyNext(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Delay: 200 * time.Millisecond}

	tests := []struct {
		attempt   int
		wantDelay time.Duration
		wantOK    bool
	}{
		{0, 0, false},
		{1, 200 * time.Millisecond, true},
		{3, 200 * time.Millisecond, true},
		{4, 0, false},
	}

	for _, tt := range tests {
		delay, ok := policy.Next(tt.attempt)
		assert.Equal(t, tt.wantOK, ok, "attempt %d", tt.attempt)
		assert.Equal(t, tt.wantDelay, delay, "attempt %d", tt.attempt)
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.Delay)
	assert.False(t, policy.Exhausted(4))
	assert.True(t, policy.Exhausted(5))
}

func TestZeroPolicyNeverRetries(t *testing.T) {
	_, ok := RetryPolicy{}.Next(1)
	assert.False(t, ok)
}
