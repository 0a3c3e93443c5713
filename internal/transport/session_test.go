package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverMode int

const (
	modeAck serverMode = iota
	modeReject
	modeSilent
)

// fakeServer speaks just enough Socket.IO to drive a Session
type fakeServer struct {
	t        *testing.T
	mode     serverMode
	srv      *httptest.Server
	upgrader websocket.Upgrader

	connections int32
	conns       chan *websocket.Conn
	received    chan string

	mu      sync.Mutex
	headers []string
}

func newFakeServer(t *testing.T, mode serverMode) *fakeServer {
	f := &fakeServer{
		t:        t,
		mode:     mode,
		conns:    make(chan *websocket.Conn, 16),
		received: make(chan string, 64),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	atomic.AddInt32(&f.connections, 1)
	f.mu.Lock()
	f.headers = append(f.headers, r.Header.Get("Authorization"))
	f.mu.Unlock()

	conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"e1","pingInterval":25000,"pingTimeout":20000}`))

	_, connect, err := conn.ReadMessage()
	if err != nil {
		return
	}
	f.received <- string(connect)

	switch f.mode {
	case modeAck:
		conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"n1"}`))
	case modeReject:
		conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"Not authorized"}`))
	}
	f.conns <- conn

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f.received <- string(data)
	}
}

func (f *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no server connection")
		return nil
	}
}

func (f *fakeServer) next(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-f.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("server received nothing")
		return ""
	}
}

func newSession(t *testing.T, url string, opts Options) *Session {
	t.Helper()
	opts.URL = url
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.LivenessTimeout == 0 {
		opts.LivenessTimeout = 5 * time.Second
	}
	if opts.Retry == (resilience.RetryPolicy{}) {
		opts.Retry = resilience.RetryPolicy{MaxAttempts: 2, Delay: 10 * time.Millisecond}
	}
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func nextEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transport event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, s *Session, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event %s (%s)", ev.Type, ev.Reason)
	case <-time.After(wait):
	}
}

func TestConnectAndExchange(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})

	assert.Equal(t, types.StateDisconnected, s.State())
	s.Connect("tok")

	assert.Equal(t, `40{"token":"tok"}`, server.next(t))
	ev := nextEvent(t, s)
	require.Equal(t, EventConnected, ev.Type)
	assert.Equal(t, types.StateConnected, s.State())

	server.mu.Lock()
	assert.Equal(t, []string{"Bearer tok"}, server.headers)
	server.mu.Unlock()

	conn := server.conn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`42["message",{"text":"hola"}]`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`42["typing",{}]`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`42["message","plain"]`)))

	ev = nextEvent(t, s)
	require.Equal(t, EventFrame, ev.Type)
	assert.Equal(t, map[string]interface{}{"text": "hola"}, ev.Frame.Value)

	ev = nextEvent(t, s)
	require.Equal(t, EventFrame, ev.Type)
	text, ok := ev.Frame.Text()
	assert.True(t, ok)
	assert.Equal(t, "plain", text)

	env := types.NewTextEnvelope("hi", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, s.Send(env))
	assert.Equal(t, `42["message",{"message":"hi","timestamp":"2024-01-02T03:04:05Z"}]`, server.next(t))
}

func TestSendWhileDisconnected(t *testing.T) {
	s := newSession(t, "ws://127.0.0.1:1", Options{})
	err := s.Send(types.NewTextEnvelope("hi", time.Now()))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPingAnswered(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})
	s.Connect("tok")

	server.next(t)
	require.Equal(t, EventConnected, nextEvent(t, s).Type)

	conn := server.conn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("2")))
	assert.Equal(t, "3", server.next(t))
}

func TestConnectErrorRetriesThenFails(t *testing.T) {
	server := newFakeServer(t, modeReject)
	s := newSession(t, server.url(), Options{
		Retry: resilience.RetryPolicy{MaxAttempts: 2, Delay: 10 * time.Millisecond},
	})
	s.Connect("bad")

	for attempt := 1; attempt <= 3; attempt++ {
		ev := nextEvent(t, s)
		require.Equal(t, EventConnectError, ev.Type)
		assert.Equal(t, attempt, ev.Attempt)
		assert.Equal(t, "Not authorized", ev.Reason)
	}

	ev := nextEvent(t, s)
	assert.Equal(t, EventFailed, ev.Type)
	assert.Equal(t, ReasonFailed, ev.Reason)
	assert.Equal(t, types.StateDisconnected, s.State())
	assert.Equal(t, int32(3), atomic.LoadInt32(&server.connections))
}

func TestDialFailure(t *testing.T) {
	server := newFakeServer(t, modeAck)
	url := server.url()
	server.srv.Close()

	s := newSession(t, url, Options{
		Retry: resilience.RetryPolicy{MaxAttempts: 1, Delay: 5 * time.Millisecond},
	})
	s.Connect("tok")

	assert.Equal(t, EventConnectError, nextEvent(t, s).Type)
	assert.Equal(t, EventConnectError, nextEvent(t, s).Type)
	assert.Equal(t, EventFailed, nextEvent(t, s).Type)
}

func TestServerDisconnectIsFinal(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})
	s.Connect("tok")

	server.next(t)
	require.Equal(t, EventConnected, nextEvent(t, s).Type)

	conn := server.conn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("41")))

	ev := nextEvent(t, s)
	assert.Equal(t, EventDisconnected, ev.Type)
	assert.Equal(t, ReasonServerDisconnect, ev.Reason)
	assert.Equal(t, types.StateDisconnected, s.State())

	assertNoEvent(t, s, 100*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&server.connections))
}

func TestDropReconnects(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})
	s.Connect("tok")

	server.next(t)
	require.Equal(t, EventConnected, nextEvent(t, s).Type)

	server.conn(t).Close()

	ev := nextEvent(t, s)
	assert.Equal(t, EventDisconnected, ev.Type)
	assert.NotEmpty(t, ev.Reason)

	server.next(t)
	assert.Equal(t, EventConnected, nextEvent(t, s).Type)
	assert.Equal(t, int32(2), atomic.LoadInt32(&server.connections))
}

func TestLivenessFailsOnce(t *testing.T) {
	server := newFakeServer(t, modeSilent)
	s := newSession(t, server.url(), Options{
		LivenessTimeout: 50 * time.Millisecond,
		ConnectTimeout:  2 * time.Second,
	})
	s.Connect("tok")

	server.next(t)
	ev := nextEvent(t, s)
	assert.Equal(t, EventLivenessFailed, ev.Type)
	assert.Equal(t, types.StateConnecting, s.State())

	assertNoEvent(t, s, 200*time.Millisecond)
}

func TestCloseIsIdempotentAndFences(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})
	s.Connect("tok")

	server.next(t)
	require.Equal(t, EventConnected, nextEvent(t, s).Type)

	s.Close()
	s.Close()
	assert.Equal(t, types.StateDisconnected, s.State())

	// The dropped socket must not surface as a disconnect or trigger a retry
	assertNoEvent(t, s, 150*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&server.connections))
	assert.ErrorIs(t, s.Send(types.NewTextEnvelope("x", time.Now())), ErrNotConnected)
}

func TestReconnectReplacesConnection(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})

	s.Connect("first")
	assert.Equal(t, `40{"token":"first"}`, server.next(t))
	require.Equal(t, EventConnected, nextEvent(t, s).Type)

	s.Connect("second")
	assert.Equal(t, `40{"token":"second"}`, server.next(t))
	require.Equal(t, EventConnected, nextEvent(t, s).Type)
	assertNoEvent(t, s, 100*time.Millisecond)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"ws://host:8000", "/socket.io/", "ws://host:8000/socket.io/?EIO=4&transport=websocket"},
		{"https://host/api/", "socket.io", "wss://host/api/socket.io?EIO=4&transport=websocket"},
		{"http://host", "", "ws://host/socket.io/?EIO=4&transport=websocket"},
	}
	for _, tt := range tests {
		got, err := endpointURL(tt.base, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := endpointURL("ftp://host", "")
	assert.Error(t, err)
}

func TestCloseDiscardsBufferedEvents(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})
	s.Connect("tok")
	server.next(t)

	conn := server.conn(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`42["message","stale"]`)))
	}
	// connected + 5 frames, none read yet
	require.Eventually(t, func() bool { return len(s.Events()) == 6 }, 2*time.Second, 5*time.Millisecond)

	before := s.Epoch()
	s.Close()
	assert.Greater(t, s.Epoch(), before)
	assertNoEvent(t, s, 100*time.Millisecond)
}

func TestConnectDiscardsPreviousEpoch(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})
	s.Connect("first")
	server.next(t)

	conn := server.conn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`42["message","old"]`)))
	require.Eventually(t, func() bool { return len(s.Events()) == 2 }, 2*time.Second, 5*time.Millisecond)

	s.Connect("second")
	server.next(t)
	ev := nextEvent(t, s)
	assert.Equal(t, EventConnected, ev.Type)
	assert.Equal(t, s.Epoch(), ev.Epoch)
}

func TestShutdownReleasesPump(t *testing.T) {
	server := newFakeServer(t, modeAck)
	s := newSession(t, server.url(), Options{})
	s.Connect("tok")
	server.next(t)

	conn := server.conn(t)
	for i := 0; i < cap(s.events)+10; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`42["message","flood"]`)))
	}
	require.Eventually(t, func() bool { return len(s.Events()) == cap(s.events) }, 2*time.Second, 5*time.Millisecond)

	s.Shutdown()
	require.Eventually(t, func() bool {
		s.qmu.Lock()
		defer s.qmu.Unlock()
		return !s.pumping
	}, 2*time.Second, 5*time.Millisecond)

	s.Connect("again")
	assert.Equal(t, types.StateDisconnected, s.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&server.connections))
}
