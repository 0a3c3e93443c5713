// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs are written to stderr so that the interactive chat client can keep
// stdout for conversation output.
//
// Example Usage:
//
//	logger := logging.NewDefault().Named("transport")
//	logger.Info("Connected", zap.String("url", url))
//	logger.Warn("Reconnect scheduled", zap.Int("attempt", n), zap.Error(err))
package logging
