// Package testutil provides mocks and helpers shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/transport"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransport is a mock implementation of transport.Transport.
//
// Tests push connection outcomes through Emit; Connect, Close and Send are
// recorded by the embedded mock. Connect and Close advance the epoch like
// the real session.
type MockTransport struct {
	mock.Mock

	events chan transport.Event

	mu    sync.Mutex
	state types.ConnectionState
	epoch uint64
}

// Connect mocks the Connect method.
func (m *MockTransport) Connect(token string) {
	m.Called(token)
	m.advance(types.StateConnecting)
}

func (m *MockTransport) advance(state types.ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.state = state
}

// Send mocks the Send method.
func (m *MockTransport) Send(env types.OutboundEnvelope) error {
	args := m.Called(env)
	return args.Error(0)
}

// Close mocks the Close method.
func (m *MockTransport) Close() {
	m.Called()
	m.advance(types.StateDisconnected)
}

// Shutdown mocks the Shutdown method.
func (m *MockTransport) Shutdown() {
	m.Called()
	m.advance(types.StateDisconnected)
}

// Epoch returns the current epoch.
func (m *MockTransport) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Events returns the channel fed by Emit.
func (m *MockTransport) Events() <-chan transport.Event {
	return m.events
}

// State returns the state last set by Connect, Close or SetState.
func (m *MockTransport) State() types.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetState overrides the reported connection state.
func (m *MockTransport) SetState(state types.ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// Emit publishes an event of the current epoch as the real transport would.
func (m *MockTransport) Emit(ev transport.Event) {
	m.EmitAt(m.Epoch(), ev)
}

// EmitAt publishes an event stamped with the given epoch.
func (m *MockTransport) EmitAt(epoch uint64, ev transport.Event) {
	ev.Epoch = epoch
	if ev.Type == transport.EventConnected && epoch == m.Epoch() {
		m.SetState(types.StateConnected)
	}
	m.events <- ev
}

// EmitFrame publishes an inbound frame.
func (m *MockTransport) EmitFrame(value interface{}) {
	m.Emit(transport.Event{Type: transport.EventFrame, Frame: types.RawFrame{Value: value}})
}

// NewMockTransport creates a mock transport. Connect and Close are allowed
// any number of times; Send expectations are left to the test.
func NewMockTransport(t *testing.T) *MockTransport {
	t.Helper()
	m := &MockTransport{
		events: make(chan transport.Event, 16),
		state:  types.StateDisconnected,
	}
	m.On("Connect", mock.Anything).Return().Maybe()
	m.On("Close").Return().Maybe()
	m.On("Shutdown").Return().Maybe()
	return m
}

// MockAuthenticator is a mock implementation of auth.Authenticator.
type MockAuthenticator struct {
	mock.Mock
}

// Login mocks the Login method.
func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

// Profile mocks the Profile method.
func (m *MockAuthenticator) Profile(ctx context.Context, token string) (*types.UserProfile, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

// NewMockAuthenticator creates a mock whose Profile call returns profile
// for any token.
func NewMockAuthenticator(t *testing.T, profile *types.UserProfile) *MockAuthenticator {
	t.Helper()
	m := new(MockAuthenticator)
	if profile != nil {
		m.On("Profile", mock.Anything, mock.Anything).Return(profile, nil).Maybe()
	}
	return m
}

// TestProfile returns a representative user profile.
func TestProfile() *types.UserProfile {
	return &types.UserProfile{
		ID:       "42",
		Username: "ana",
		Email:    "ana@example.com",
		Name:     "Ana",
	}
}

// Eventually waits for cond with the timeouts used across the suite.
func Eventually(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msgAndArgs...)
}

// StatusTexts returns the text of every status event in order.
func StatusTexts(events []types.ChatEvent) []string {
	var out []string
	for _, ev := range events {
		if ev.IsStatus() {
			out = append(out, ev.Text)
		}
	}
	return out
}

// CountKind counts events of one kind.
func CountKind(events []types.ChatEvent, kind types.Kind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
