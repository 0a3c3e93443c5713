/*
Package resilience provides the circuit breaker guarding the auth API and the
fixed-delay retry policy used by the real-time channel.

# Overview

The breaker keeps a struggling auth endpoint from being hammered by repeated
logins; the retry policy bounds reconnection of the WebSocket session.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Configurable failure thresholds and timeouts
- Automatic state transitions
- Concurrent request handling
- State change callbacks for monitoring
- Error classification so client errors do not trip the breaker
- Thread-safe operations

# Usage

	// Create a circuit breaker
	breaker := resilience.New("service", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	// Execute request through breaker
	resp, err := resilience.Do(breaker, func() (*resty.Response, error) {
		return req.Post(url)
	})

	// Bounded reconnection
	policy := resilience.DefaultRetryPolicy()
	if delay, ok := policy.Next(attempt); ok {
		time.AfterFunc(delay, reconnect)
	}

# States

- Closed: Normal operation, requests pass through
- Open: Service unavailable, requests fail immediately
- Half-Open: Testing if service recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
