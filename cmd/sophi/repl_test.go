package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/audio"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	mu       sync.Mutex
	calls    []string
	events   chan types.ChatEvent
	history  []types.ChatEvent
	stopErr  error
	password string
}

func newFakeChat() *fakeChat {
	return &fakeChat{events: make(chan types.ChatEvent, 8)}
}

func (f *fakeChat) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeChat) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeChat) Login(ctx context.Context, username, password string) error {
	f.mu.Lock()
	f.password = password
	f.mu.Unlock()
	f.record("login " + username)
	return nil
}

func (f *fakeChat) Logout()                                  { f.record("logout") }
func (f *fakeChat) SendText(text string) error               { f.record("send " + text); return nil }
func (f *fakeChat) StartRecording(ctx context.Context) error { f.record("rec"); return nil }
func (f *fakeChat) StopRecording() error                     { f.record("stop"); return f.stopErr }
func (f *fakeChat) History() []types.ChatEvent               { return f.history }
func (f *fakeChat) Status() types.Status {
	return types.Status{ConnectionState: types.StateConnected, Authenticated: true}
}

func (f *fakeChat) Subscribe() (<-chan types.ChatEvent, func()) {
	var once sync.Once
	return f.events, func() { once.Do(func() { close(f.events) }) }
}

func runREPL(t *testing.T, chat *fakeChat, input string) string {
	t.Helper()
	var out bytes.Buffer
	in, w, closeIn, err := newLineReader(strings.NewReader(input), &out)
	require.NoError(t, err)
	defer closeIn()
	r := newREPL(chat, in, w, renderer{})

	done := make(chan error, 1)
	go func() { done <- r.run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("repl did not finish")
	}
	return out.String()
}

func TestREPLCommands(t *testing.T) {
	chat := newFakeChat()
	chat.stopErr = audio.ErrNotRecording

	out := runREPL(t, chat, strings.Join([]string{
		"hello there",
		"/login ana s3cret",
		"/rec",
		"/stop",
		"/logout",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n"))

	assert.Equal(t, []string{"send hello there", "login ana", "rec", "stop", "logout"}, chat.Calls())
	assert.Equal(t, "s3cret", chat.password)
	assert.Contains(t, out, "! not recording")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "connected")
}

func TestREPLPromptsForPassword(t *testing.T) {
	chat := newFakeChat()
	runREPL(t, chat, "/login ana\n  pw with spaces \n")

	assert.Equal(t, []string{"login ana"}, chat.Calls())
	assert.Equal(t, "pw with spaces", chat.password)
}

func TestREPLWhitespaceGoesToSession(t *testing.T) {
	chat := newFakeChat()
	runREPL(t, chat, "   \n")
	// The session decides that blank input is a no-op
	assert.Equal(t, []string{"send    "}, chat.Calls())
}

func TestREPLPrintsEvents(t *testing.T) {
	chat := newFakeChat()
	chat.events <- types.ChatEvent{ID: "evt_1", Role: types.RoleAssistant, Kind: types.KindText, Text: "hola"}
	chat.history = []types.ChatEvent{{ID: "evt_0", Role: types.RoleUser, Kind: types.KindText, Text: "earlier"}}

	out := runREPL(t, chat, "/history\n")
	assert.Contains(t, out, "hola")
	assert.Contains(t, out, "earlier")
}

func TestNonTerminalInputUsesScanner(t *testing.T) {
	var out bytes.Buffer
	in, w, closeIn, err := newLineReader(strings.NewReader("one\ntwo"), &out)
	require.NoError(t, err)
	defer closeIn()

	assert.IsType(t, scanReader{}, in)
	assert.Same(t, &out, w)

	for _, want := range []string{"one", "two"} {
		line, err := in.Readline()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err = in.Readline()
	assert.ErrorIs(t, err, io.EOF)
}
