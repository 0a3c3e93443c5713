// Package auth exchanges credentials for a bearer token and fetches the
// user profile.
//
// Requests go through a rate limiter and a circuit breaker. Transport errors
// and 5xx responses are retried; 4xx responses are returned as *Error
// immediately and do not count against the breaker. A 401 from any endpoint
// wraps ErrUnauthorized.
package auth
