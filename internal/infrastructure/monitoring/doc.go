/*
Package monitoring provides Prometheus metrics for the chat client.

# Overview

Collectors cover the transport session (state, attempts, reconnects,
liveness failures, frames in and envelopes out), the decoder (outcome per
rule), the auth API, audio recordings, chat history and the local bridge
API. Each Metrics value owns its registry unless one is supplied, so several
clients can coexist in one process (and in tests).

# Usage

	metrics := monitoring.NewMetrics()

	// Expose on the bridge router
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	// Record from components
	metrics.RecordDecode("transcription", "event")
	metrics.RecordEnvelope("audio", "sent")

A nil *Metrics is valid and records nothing.
*/
package monitoring
