// Package server assembles the local bridge API. The router stacks
// recovery, request tracing, request metrics, CORS and rate limiting in
// front of the bridge routes, and serves Prometheus metrics on /metrics.
package server
