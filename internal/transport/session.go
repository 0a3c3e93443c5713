package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Send outside the Connected state
var ErrNotConnected = errors.New("not connected")

// ReasonServerDisconnect is reported when the server closes the namespace
const ReasonServerDisconnect = "io server disconnect"

// ReasonFailed is reported once reconnection attempts are exhausted
const ReasonFailed = "connection failed"

var allStates = []string{
	string(types.StateDisconnected),
	string(types.StateConnecting),
	string(types.StateConnected),
	string(types.StateError),
}

// Options configures a Session
type Options struct {
	// URL is the ws(s) or http(s) base of the real-time endpoint
	URL             string
	Path            string
	ConnectTimeout  time.Duration
	LivenessTimeout time.Duration
	Retry           resilience.RetryPolicy
	Dialer          *websocket.Dialer
	Logger          *logging.Logger
	Metrics         *monitoring.Metrics
}

// Session owns at most one live Socket.IO connection.
//
// All outcomes are published on Events in arrival order, stamped with the
// epoch they belong to. Every Connect and Close starts a new epoch and
// discards buffered events of the old one; an event already handed to the
// channel send may still arrive, so consumers drop any Event whose Epoch
// differs from Epoch().
type Session struct {
	opts     Options
	endpoint string
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	events   chan Event
	done     chan struct{}

	mu            sync.Mutex
	state         types.ConnectionState
	token         string
	epoch         uint64 // per Connect/Close
	stopped       bool
	gen           uint64 // per connection attempt
	attempt       int    // failed attempts since the last ack
	conn          *websocket.Conn
	cancelDial    context.CancelFunc
	engineOpen    bool
	livenessFired bool
	retryTimer    *time.Timer
	livenessTimer *time.Timer

	writeMu sync.Mutex

	qmu     sync.Mutex
	queue   []Event
	pumping bool
}

// New creates a disconnected session
func New(opts Options) (*Session, error) {
	endpoint, err := endpointURL(opts.URL, opts.Path)
	if err != nil {
		return nil, err
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.LivenessTimeout <= 0 {
		opts.LivenessTimeout = 3 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 && opts.Retry.Delay == 0 {
		opts.Retry = resilience.DefaultRetryPolicy()
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.ConnectTimeout,
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Session{
		opts:     opts,
		endpoint: endpoint,
		logger:   logger.Named("transport"),
		metrics:  opts.Metrics,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		state:    types.StateDisconnected,
	}
	s.metrics.SetConnectionState(string(s.state), allStates)
	return s, nil
}

// endpointURL builds {base}{path}?EIO=4&transport=websocket
func endpointURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid websocket url %q: unsupported scheme", base)
	}
	if path == "" {
		path = "/socket.io/"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Events returns the stream of connection outcomes and inbound frames
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current connection state
func (s *Session) State() types.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Epoch returns the current connection epoch
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Connect tears down any prior connection and starts a new one. It does
// not block; the result arrives on Events. Connect after Shutdown is a no-op.
func (s *Session) Connect(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	if s.stopped {
		return
	}
	s.token = token
	s.attempt = 0
	s.livenessFired = false

	epoch := s.epoch
	s.livenessTimer = time.AfterFunc(s.opts.LivenessTimeout, func() {
		s.checkLiveness(epoch)
	})
	s.startAttemptLocked()
}

// Close ends any connection and cancels pending timers. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.setStateLocked(types.StateDisconnected)
}

// Shutdown closes the session for good and releases the event pump.
// Events is not closed; consumers stop reading on their own terms.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.setStateLocked(types.StateDisconnected)
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
}

// Send writes one envelope as a "message" event
func (s *Session) Send(env types.OutboundEnvelope) error {
	kind := string(env.Kind())

	s.mu.Lock()
	conn := s.conn
	connected := s.state == types.StateConnected
	s.mu.Unlock()

	if !connected || conn == nil {
		s.metrics.RecordEnvelope(kind, "not_connected")
		return ErrNotConnected
	}

	payload, err := encodeEvent(MessageEvent, env)
	if err != nil {
		s.metrics.RecordEnvelope(kind, "error")
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := s.write(conn, payload); err != nil {
		s.metrics.RecordEnvelope(kind, "error")
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	s.metrics.RecordEnvelope(kind, "sent")
	return nil
}

func (s *Session) write(conn *websocket.Conn, payload string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

// teardownLocked fences every goroutine and timer of the current epoch
func (s *Session) teardownLocked() {
	s.epoch++
	s.gen++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if s.livenessTimer != nil {
		s.livenessTimer.Stop()
		s.livenessTimer = nil
	}
	s.closeConnLocked()
	s.drainLocked()
}

// drainLocked drops events of the finished epoch that are still buffered
func (s *Session) drainLocked() {
	s.qmu.Lock()
	s.queue = s.queue[:0]
	s.qmu.Unlock()

	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

func (s *Session) closeConnLocked() {
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.engineOpen = false
}

func (s *Session) startAttemptLocked() {
	s.gen++
	s.setStateLocked(types.StateConnecting)

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConnectTimeout)
	s.cancelDial = cancel
	go s.run(ctx, s.gen, s.token)
}

// run dials, performs the handshake and then reads until the link dies
func (s *Session) run(ctx context.Context, gen uint64, token string) {
	start := time.Now()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := s.opts.Dialer.DialContext(ctx, s.endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.attemptFailed(gen, fmt.Sprintf("dial failed: %v", err))
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	// The whole handshake must finish within the attempt timeout
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	heartbeat := openPayload{}.heartbeat()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.connectionLost(gen, err)
			return
		}
		s.metrics.IncFramesReceived()

		p, err := parsePacket(string(data))
		if err != nil {
			s.logger.Debug("Dropping malformed packet", zap.Error(err))
			continue
		}

		switch p.engine {
		case engineOpen:
			open, err := parseOpen(p.data)
			if err != nil {
				s.logger.Debug("Bad open packet", zap.Error(err))
			}
			heartbeat = open.heartbeat()
			if !s.markEngineOpen(gen) {
				return
			}
			connect, err := encodeConnect(token)
			if err == nil {
				err = s.write(conn, connect)
			}
			if err != nil {
				s.attemptFailed(gen, fmt.Sprintf("handshake failed: %v", err))
				return
			}

		case enginePing:
			if err := s.write(conn, string(enginePong)); err != nil {
				s.connectionLost(gen, err)
				return
			}
			if s.State() == types.StateConnected {
				conn.SetReadDeadline(time.Now().Add(heartbeat))
			}

		case engineClose:
			s.connectionLost(gen, errors.New("transport close"))
			return

		case engineMessage:
			switch p.socket {
			case socketConnect:
				if !s.acked(gen, start) {
					return
				}
				conn.SetReadDeadline(time.Now().Add(heartbeat))

			case socketConnectError:
				s.attemptFailed(gen, connectErrorReason(p.data))
				return

			case socketDisconnect:
				s.serverDisconnect(gen)
				return

			case socketEvent:
				name, arg, err := parseEvent(p.data)
				if err != nil {
					s.logger.Debug("Dropping malformed event", zap.Error(err))
					continue
				}
				if name != MessageEvent {
					s.logger.Debug("Ignoring event", zap.String("event", name))
					continue
				}
				s.frame(gen, types.RawFrame{Value: arg})
			}
		}
	}
}

func (s *Session) markEngineOpen(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.engineOpen = true
	return true
}

func (s *Session) acked(gen uint64, start time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	s.attempt = 0
	s.setStateLocked(types.StateConnected)
	s.metrics.RecordConnectAttempt("success")
	s.metrics.RecordHandshake(time.Since(start))
	s.emitLocked(Event{Type: EventConnected})
	s.logger.Info("Connected", zap.String("endpoint", s.endpoint))
	return true
}

func (s *Session) frame(gen uint64, frame types.RawFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.emitLocked(Event{Type: EventFrame, Frame: frame})
}

// attemptFailed handles an attempt that never reached the ack
func (s *Session) attemptFailed(gen uint64, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}

	s.closeConnLocked()
	s.attempt++
	s.setStateLocked(types.StateError)
	s.metrics.RecordConnectAttempt("error")
	s.emitLocked(Event{Type: EventConnectError, Reason: reason, Attempt: s.attempt})
	s.logger.Warn("Connect attempt failed",
		zap.Int("attempt", s.attempt),
		zap.String("reason", reason))

	delay, ok := s.opts.Retry.Next(s.attempt)
	if !ok {
		s.exhaustedLocked()
		return
	}
	s.scheduleRetryLocked(delay)
}

// connectionLost handles a read error or engine close
func (s *Session) connectionLost(gen uint64, err error) {
	s.mu.Lock()
	wasConnected := s.gen == gen && s.state == types.StateConnected
	s.mu.Unlock()

	if !wasConnected {
		s.attemptFailed(gen, fmt.Sprintf("handshake interrupted: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}

	reason := "transport close"
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		reason = fmt.Sprintf("transport error: %v", err)
	}
	s.closeConnLocked()
	s.setStateLocked(types.StateError)
	s.emitLocked(Event{Type: EventDisconnected, Reason: reason})
	s.logger.Warn("Connection lost", zap.String("reason", reason))
	s.scheduleRetryLocked(s.opts.Retry.Delay)
}

func (s *Session) serverDisconnect(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}

	s.closeConnLocked()
	if s.livenessTimer != nil {
		s.livenessTimer.Stop()
		s.livenessTimer = nil
	}
	s.setStateLocked(types.StateDisconnected)
	s.emitLocked(Event{Type: EventDisconnected, Reason: ReasonServerDisconnect})
	s.logger.Info("Server closed the session")
}

func (s *Session) exhaustedLocked() {
	s.gen++
	if s.livenessTimer != nil {
		s.livenessTimer.Stop()
		s.livenessTimer = nil
	}
	s.setStateLocked(types.StateDisconnected)
	s.emitLocked(Event{Type: EventFailed, Reason: ReasonFailed, Attempt: s.attempt})
	s.logger.Error("Giving up on connection", zap.Int("attempts", s.attempt))
}

func (s *Session) scheduleRetryLocked(delay time.Duration) {
	gen := s.gen
	s.retryTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		s.retryTimer = nil
		s.metrics.IncReconnects()
		s.startAttemptLocked()
	})
}

func (s *Session) checkLiveness(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.livenessFired {
		return
	}
	s.livenessTimer = nil
	if s.engineOpen && s.state != types.StateConnected {
		s.livenessFired = true
		s.metrics.IncLivenessFailures()
		s.emitLocked(Event{Type: EventLivenessFailed})
		s.logger.Warn("Socket open but not connected after liveness timeout")
	}
}

func (s *Session) setStateLocked(state types.ConnectionState) {
	if s.state == state {
		return
	}
	s.state = state
	s.metrics.SetConnectionState(string(state), allStates)
}

// emitLocked queues an event stamped with the current epoch. A single pump
// goroutine forwards the queue so publishers never block under mu.
func (s *Session) emitLocked(ev Event) {
	ev.Epoch = s.epoch
	ev.At = time.Now()

	s.qmu.Lock()
	s.queue = append(s.queue, ev)
	if !s.pumping {
		s.pumping = true
		go s.pump()
	}
	s.qmu.Unlock()
}

func (s *Session) pump() {
	for {
		s.qmu.Lock()
		if len(s.queue) == 0 {
			s.pumping = false
			s.qmu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		if ev.Epoch != s.currentEpoch() {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			s.qmu.Lock()
			s.queue = nil
			s.pumping = false
			s.qmu.Unlock()
			return
		}
	}
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}
