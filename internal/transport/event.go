package transport

import (
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/types"
)

// EventType classifies what a Session published
type EventType string

const (
	EventConnected      EventType = "connected"
	EventDisconnected   EventType = "disconnected"
	EventConnectError   EventType = "connect_error"
	EventFailed         EventType = "failed"
	EventLivenessFailed EventType = "liveness_failed"
	EventFrame          EventType = "frame"
)

// Event is one connection outcome or inbound frame
type Event struct {
	Type    EventType
	Reason  string
	Attempt int
	Frame   types.RawFrame
	Epoch   uint64
	At      time.Time
}

// Transport is the surface the session orchestrator drives
type Transport interface {
	Connect(token string)
	Send(env types.OutboundEnvelope) error
	Close()
	Events() <-chan Event
	State() types.ConnectionState
	// Epoch identifies the current Connect/Close cycle; events carrying
	// another epoch are stale.
	Epoch() uint64
	// Shutdown is a terminal Close
	Shutdown()
}

var _ Transport = (*Session)(nil)
