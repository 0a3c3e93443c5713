// Package middleware provides the gin middleware of the local bridge API.
//
// The bridge listens on loopback by default, so CORS only admits local
// front-ends (any port on localhost, 127.0.0.1 or ::1) plus explicitly
// configured origins. Rate limiting is a per-IP token bucket whose idle
// entries are swept.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
