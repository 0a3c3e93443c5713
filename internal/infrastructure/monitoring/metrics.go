package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the chat client.
//
// All Record/Set methods are safe on a nil *Metrics so components can run
// without instrumentation.
type Metrics struct {
	// Transport metrics
	ConnectionState   *prometheus.GaugeVec
	ConnectAttempts   *prometheus.CounterVec
	Reconnects        prometheus.Counter
	LivenessFailures  prometheus.Counter
	FramesReceived    prometheus.Counter
	EnvelopesSent     *prometheus.CounterVec
	HandshakeDuration prometheus.Histogram

	// Decoder metrics
	FramesDecoded *prometheus.CounterVec

	// Auth metrics
	AuthRequests *prometheus.CounterVec
	AuthDuration *prometheus.HistogramVec

	// Audio metrics
	Recordings        *prometheus.CounterVec
	RecordingDuration prometheus.Histogram
	RecordingBytes    prometheus.Histogram

	// Chat metrics
	ChatEvents *prometheus.CounterVec

	// Bridge HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a collector set on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.registry = reg
	return m
}

// NewMetricsWith registers the collectors on the given registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConnectionState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sophi_transport_connection_state",
				Help: "1 for the current transport session state, 0 otherwise",
			},
			[]string{"state"},
		),
		ConnectAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sophi_transport_connect_attempts_total",
				Help: "Connection attempts by outcome",
			},
			[]string{"result"},
		),
		Reconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sophi_transport_reconnects_total",
				Help: "Scheduled reconnection attempts",
			},
		),
		LivenessFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sophi_transport_liveness_failures_total",
				Help: "Liveness checks that found the handshake unconfirmed",
			},
		),
		FramesReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sophi_transport_frames_received_total",
				Help: "Inbound message frames",
			},
		),
		EnvelopesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sophi_transport_envelopes_sent_total",
				Help: "Outbound envelopes by type and result",
			},
			[]string{"type", "result"},
		),
		HandshakeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sophi_transport_handshake_duration_seconds",
				Help:    "Time from dial to namespace connect acknowledgment",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		FramesDecoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sophi_decoder_frames_total",
				Help: "Decoded frames by matching rule and outcome",
			},
			[]string{"rule", "outcome"},
		),
		AuthRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sophi_auth_requests_total",
				Help: "Auth API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		AuthDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sophi_auth_request_duration_seconds",
				Help:    "Auth API request duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
		Recordings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sophi_audio_recordings_total",
				Help: "Finished recordings by result",
			},
			[]string{"result"},
		),
		RecordingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sophi_audio_recording_duration_seconds",
				Help:    "Recording length in seconds",
				Buckets: []float64{.5, 1, 2, 5, 10, 20, 30},
			},
		),
		RecordingBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sophi_audio_recording_bytes",
				Help:    "Encoded recording size in bytes",
				Buckets: []float64{1000, 10000, 50000, 100000, 500000, 1000000, 5000000},
			},
		),
		ChatEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sophi_chat_events_total",
				Help: "Chat events appended to history by role and kind",
			},
			[]string{"role", "kind"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sophi_bridge_http_requests_total",
				Help: "Total number of bridge HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sophi_bridge_http_request_duration_seconds",
				Help:    "Bridge HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the private registry, or nil when metrics were registered
// on an external registerer.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetConnectionState marks state as the only active connection state
func (m *Metrics) SetConnectionState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		value := 0.0
		if s == state {
			value = 1
		}
		m.ConnectionState.WithLabelValues(s).Set(value)
	}
}

// RecordConnectAttempt records one connection attempt outcome
func (m *Metrics) RecordConnectAttempt(result string) {
	if m == nil {
		return
	}
	m.ConnectAttempts.WithLabelValues(result).Inc()
}

// RecordHandshake records a completed handshake
func (m *Metrics) RecordHandshake(duration time.Duration) {
	if m == nil {
		return
	}
	m.HandshakeDuration.Observe(duration.Seconds())
}

// IncReconnects increments the reconnect counter
func (m *Metrics) IncReconnects() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

// IncLivenessFailures increments the liveness failure counter
func (m *Metrics) IncLivenessFailures() {
	if m == nil {
		return
	}
	m.LivenessFailures.Inc()
}

// IncFramesReceived increments the inbound frame counter
func (m *Metrics) IncFramesReceived() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

// RecordEnvelope records an outbound envelope
func (m *Metrics) RecordEnvelope(envelopeType, result string) {
	if m == nil {
		return
	}
	m.EnvelopesSent.WithLabelValues(envelopeType, result).Inc()
}

// RecordDecode records a decoder outcome
func (m *Metrics) RecordDecode(rule, outcome string) {
	if m == nil {
		return
	}
	m.FramesDecoded.WithLabelValues(rule, outcome).Inc()
}

// RecordAuthRequest records an auth API call
func (m *Metrics) RecordAuthRequest(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AuthRequests.WithLabelValues(endpoint, status).Inc()
	m.AuthDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRecording records a finished recording
func (m *Metrics) RecordRecording(result string, duration time.Duration, size int) {
	if m == nil {
		return
	}
	m.Recordings.WithLabelValues(result).Inc()
	if size > 0 {
		m.RecordingDuration.Observe(duration.Seconds())
		m.RecordingBytes.Observe(float64(size))
	}
}

// RecordChatEvent records an event appended to history
func (m *Metrics) RecordChatEvent(role, kind string) {
	if m == nil {
		return
	}
	m.ChatEvents.WithLabelValues(role, kind).Inc()
}

// RecordHTTPRequest records a bridge HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
