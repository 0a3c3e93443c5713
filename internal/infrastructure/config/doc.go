// Package config provides 12-factor configuration management for the Sophi
// chat client.
//
// Configuration is loaded from environment variables with sensible defaults.
// A .env file and an optional flat YAML/TOML file can supply values that the
// real environment has not set.
//
// Configuration Sections:
//   - API: REST and WebSocket endpoints, asset host, HTTP timeout
//   - Transport: reconnection policy, connect timeout, liveness check
//   - Audio: chunk interval, recording ceiling, capture command
//   - Storage: credential data directory
//   - Chat: greeting shown on connect
//   - Logging: Log level and output format
//   - RateLimit: auth client and bridge API limits
//   - Bridge: local HTTP bridge address
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Connecting to %s\n", cfg.API.WSURL)
//
// Environment Variables:
//   - SOPHI_API_URL, SOPHI_WS_URL, SOPHI_ASSET_URL, SOPHI_HTTP_TIMEOUT
//   - SOPHI_RECONNECT_ATTEMPTS, SOPHI_RECONNECT_DELAY, SOPHI_CONNECT_TIMEOUT
//   - SOPHI_AUDIO_MAX, SOPHI_CAPTURE_CMD, SOPHI_DATA_DIR
//   - LOG_LEVEL, LOG_DEV, RATE_LIMIT_RPS, RATE_LIMIT_BURST
package config
