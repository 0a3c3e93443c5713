package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/audio"
	"github.com/GriffinCanCode/SophiChat/client/internal/auth"
	"github.com/GriffinCanCode/SophiChat/client/internal/credentials"
	"github.com/GriffinCanCode/SophiChat/client/internal/decoder"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SophiChat/client/internal/shared/id"
	"github.com/GriffinCanCode/SophiChat/client/internal/transport"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"go.uber.org/zap"
)

// Status messages shown to the user
const (
	StatusAuthenticated     = "Token obtained successfully"
	StatusNotConnected      = "not connected"
	StatusConnectionFailed  = "connection failed"
	StatusProblemConnecting = "problem connecting"
	StatusSessionExpired    = "session expired"
	StatusPermissionDenied  = "microphone permission denied"
)

// DefaultGreeting is shown whenever the channel connects
const DefaultGreeting = "Hi! I'm Sophi, your chat assistant. How can I help you today?"

var (
	ErrAlreadyRunning = errors.New("orchestrator already running")
	ErrStopped        = errors.New("orchestrator stopped")
	// ErrSuperseded is returned by a login overtaken by another login or a logout
	ErrSuperseded = errors.New("login superseded")
)

// Decoder turns raw frames into chat events
type Decoder interface {
	Decode(frame types.RawFrame) decoder.Outcome
}

// Recorder captures and transmits audio clips
type Recorder interface {
	Start(ctx context.Context) error
	Stop() error
	Abort()
	State() audio.State
	Transmit(blob audio.Blob) audio.TransmitResult
}

// BlobRevoker releases playable references on logout
type BlobRevoker interface {
	RevokeAll() int
}

// Options wires an Orchestrator to its collaborators
type Options struct {
	Transport        transport.Transport
	Auth             auth.Authenticator
	Store            credentials.Store
	Decoder          Decoder
	Recorder         Recorder
	Blobs            BlobRevoker
	Greeting         string
	SubscriberBuffer int
	Logger           *logging.Logger
	Metrics          *monitoring.Metrics
}

// Orchestrator is the top-level chat session state machine.
//
// All state changes happen on the goroutine running Run. Public methods post
// work onto that loop; readers take a snapshot under mu.
type Orchestrator struct {
	transport transport.Transport
	auth      auth.Authenticator
	store     credentials.Store
	decoder   Decoder
	recorder  Recorder
	blobs     BlobRevoker
	greeting  string
	logger    *logging.Logger
	metrics   *monitoring.Metrics

	cmds     chan func()
	handoffs chan audio.Blob
	done     chan struct{}
	running  atomic.Bool
	ctx      context.Context

	// loop-owned
	loginEpoch uint64

	mu            sync.RWMutex
	history       []types.ChatEvent
	waiting       bool
	authenticated bool
	token         string
	profile       *types.UserProfile
	subs          map[int]chan types.ChatEvent
	nextSub       int
	subBuffer     int
}

// New creates an orchestrator; call Run to start it
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 64
	}
	return &Orchestrator{
		transport: opts.Transport,
		auth:      opts.Auth,
		store:     opts.Store,
		decoder:   opts.Decoder,
		recorder:  opts.Recorder,
		blobs:     opts.Blobs,
		greeting:  opts.Greeting,
		logger:    logger.Named("session"),
		metrics:   opts.Metrics,
		cmds:      make(chan func(), 16),
		handoffs:  make(chan audio.Blob, 4),
		done:      make(chan struct{}),
		ctx:       context.Background(),
		subs:      make(map[int]chan types.ChatEvent),
		subBuffer: opts.SubscriberBuffer,
	}
}

// Run restores a persisted session and then processes commands, transport
// events and recording hand-offs until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return o.loop(ctx)
}

func (o *Orchestrator) loop(ctx context.Context) error {
	o.ctx = ctx
	defer o.shutdown()

	o.restore()

	events := o.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-o.cmds:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			o.handleTransport(ev)
		case blob := <-o.handoffs:
			o.handleRecording(blob)
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.transport.Shutdown()
	if o.recorder != nil {
		o.recorder.Abort()
	}
	close(o.done)

	o.mu.Lock()
	for key, ch := range o.subs {
		close(ch)
		delete(o.subs, key)
	}
	o.mu.Unlock()
	o.logger.Info("Session loop stopped")
}

// Done is closed once Run has returned
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// post queues fn on the loop without waiting for it
func (o *Orchestrator) post(fn func()) bool {
	select {
	case o.cmds <- fn:
		return true
	case <-o.done:
		return false
	}
}

// call runs fn on the loop and waits for its result
func (o *Orchestrator) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !o.post(func() { result <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

// restore resumes a persisted session without a login round trip
func (o *Orchestrator) restore() {
	token, ok, err := o.store.Get()
	if err != nil {
		o.logger.Warn("Could not read stored credentials", zap.Error(err))
		return
	}
	if !ok || token == "" {
		o.logger.Info("No stored session, login required")
		return
	}

	if profile, ok, err := o.store.Profile(); err == nil && ok {
		o.mu.Lock()
		o.profile = profile
		o.mu.Unlock()
	}
	o.logger.Info("Restoring stored session")
	o.authenticate(token, false)
}

// Login exchanges credentials for a token and opens the channel. A failure
// is also emitted as a status event carrying the server's message.
func (o *Orchestrator) Login(ctx context.Context, username, password string) error {
	var epoch uint64
	if err := o.call(ctx, func() error {
		o.loginEpoch++
		epoch = o.loginEpoch
		return nil
	}); err != nil {
		return err
	}

	token, loginErr := o.auth.Login(ctx, username, password)

	return o.call(context.Background(), func() error {
		if epoch != o.loginEpoch {
			o.logger.Info("Discarding superseded login response")
			return ErrSuperseded
		}
		if loginErr != nil {
			o.logger.Warn("Login failed", zap.Error(loginErr))
			o.emitStatus(loginErr.Error())
			return loginErr
		}
		o.authenticate(token, true)
		return nil
	})
}

func (o *Orchestrator) authenticate(token string, announce bool) {
	if err := o.store.Put(token); err != nil {
		o.logger.Error("Failed to persist token", zap.Error(err))
	}

	o.mu.Lock()
	o.token = token
	o.authenticated = true
	o.mu.Unlock()

	o.transport.Close()
	o.transport.Connect(token)
	o.fetchProfile(token, o.loginEpoch)

	if announce {
		o.emitStatus(StatusAuthenticated)
	}
}

func (o *Orchestrator) fetchProfile(token string, epoch uint64) {
	ctx := o.ctx
	go func() {
		profile, err := o.auth.Profile(ctx, token)
		o.post(func() {
			if epoch != o.loginEpoch {
				return
			}
			if errors.Is(err, auth.ErrUnauthorized) {
				o.logger.Warn("Stored token rejected, logging out")
				o.logout()
				o.emitStatus(StatusSessionExpired)
				return
			}
			if err != nil {
				o.logger.Warn("Profile fetch failed", zap.Error(err))
				return
			}

			o.mu.Lock()
			o.profile = profile
			o.mu.Unlock()
			if err := o.store.PutProfile(profile); err != nil {
				o.logger.Warn("Failed to persist profile", zap.Error(err))
			}
		})
	}()
}

// Logout closes the channel and forgets the session. Always succeeds.
func (o *Orchestrator) Logout() {
	o.call(context.Background(), func() error {
		o.logout()
		return nil
	})
}

func (o *Orchestrator) logout() {
	o.loginEpoch++
	o.transport.Close()
	if o.recorder != nil {
		o.recorder.Abort()
	}
	if err := o.store.Clear(); err != nil {
		o.logger.Error("Failed to clear credentials", zap.Error(err))
	}
	revoked := 0
	if o.blobs != nil {
		revoked = o.blobs.RevokeAll()
	}

	o.mu.Lock()
	wasAuthenticated := o.authenticated
	o.history = nil
	o.waiting = false
	o.authenticated = false
	o.token = ""
	o.profile = nil
	o.mu.Unlock()

	if wasAuthenticated {
		o.logger.Info("Logged out", zap.Int("revoked_blobs", revoked))
	}
}

// SendText sends a user message. Whitespace-only input is ignored.
func (o *Orchestrator) SendText(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return o.call(context.Background(), func() error {
		now := time.Now()
		o.append(newEvent(types.RoleUser, types.KindText, text, now))
		o.setWaiting(true)

		if err := o.transport.Send(types.NewTextEnvelope(text, now)); err != nil {
			o.setWaiting(false)
			o.emitStatus(sendFailureStatus(err))
			return err
		}
		return nil
	})
}

// StartRecording opens the microphone
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	if o.recorder == nil {
		return audio.ErrPermissionDenied
	}
	err := o.recorder.Start(ctx)
	if err == nil {
		return nil
	}

	status := fmt.Sprintf("could not start recording: %v", err)
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		status = StatusPermissionDenied
	case errors.Is(err, audio.ErrAlreadyRecording):
		status = "already recording"
	}
	o.call(ctx, func() error {
		o.emitStatus(status)
		return nil
	})
	return err
}

// StopRecording finishes the clip; transmission happens on the loop
func (o *Orchestrator) StopRecording() error {
	if o.recorder == nil {
		return audio.ErrNotRecording
	}
	return o.recorder.Stop()
}

// HandoffRecording receives finished clips from the recorder
func (o *Orchestrator) HandoffRecording(blob audio.Blob) {
	select {
	case o.handoffs <- blob:
	case <-o.done:
	}
}

func (o *Orchestrator) handleRecording(blob audio.Blob) {
	result := o.recorder.Transmit(blob)
	if result.Event != nil {
		o.append(*result.Event)
	}
	switch {
	case result.Err != nil:
		o.emitStatus(sendFailureStatus(result.Err))
	case result.Status != "":
		o.emitStatus(result.Status)
	case result.Sent:
		o.setWaiting(true)
	}
}

func (o *Orchestrator) handleTransport(ev transport.Event) {
	// Events of a connection closed by logout or replaced by a new login
	if ev.Epoch != o.transport.Epoch() {
		o.logger.Debug("Dropping stale transport event",
			zap.String("type", string(ev.Type)),
			zap.Uint64("epoch", ev.Epoch))
		return
	}
	switch ev.Type {
	case transport.EventConnected:
		if o.greeting != "" {
			o.append(newEvent(types.RoleAssistant, types.KindText, o.greeting, time.Now()))
		}
	case transport.EventDisconnected:
		o.emitStatus(fmt.Sprintf("disconnected: %s", ev.Reason))
	case transport.EventConnectError:
		o.emitStatus(fmt.Sprintf("connection error: %s", ev.Reason))
	case transport.EventFailed:
		o.emitStatus(StatusConnectionFailed)
	case transport.EventLivenessFailed:
		o.emitStatus(StatusProblemConnecting)
	case transport.EventFrame:
		out := o.decoder.Decode(ev.Frame)
		if out.Skip || out.Event == nil {
			o.logger.Debug("Frame skipped", zap.String("rule", out.Rule))
			return
		}
		o.append(*out.Event)
		o.setWaiting(false)
	}
}

func sendFailureStatus(err error) string {
	if errors.Is(err, transport.ErrNotConnected) {
		return StatusNotConnected
	}
	return fmt.Sprintf("send failed: %v", err)
}

func newEvent(role types.Role, kind types.Kind, text string, at time.Time) types.ChatEvent {
	return types.ChatEvent{
		ID:          string(id.NewEventID()),
		Role:        role,
		Kind:        kind,
		Text:        text,
		Attachments: []string{},
		CreatedAt:   at,
	}
}

func (o *Orchestrator) emitStatus(text string) {
	o.append(newEvent(types.RoleSystem, types.KindStatus, text, time.Now()))
}

func (o *Orchestrator) setWaiting(waiting bool) {
	o.mu.Lock()
	o.waiting = waiting
	o.mu.Unlock()
}

// append adds to history and fans out to subscribers. Slow subscribers
// lose events; History stays complete.
func (o *Orchestrator) append(ev types.ChatEvent) {
	o.mu.Lock()
	o.history = append(o.history, ev)
	for key, ch := range o.subs {
		select {
		case ch <- ev:
		default:
			o.logger.Warn("Subscriber too slow, dropping event",
				zap.Int("subscriber", key),
				zap.String("event_id", ev.ID))
		}
	}
	o.mu.Unlock()

	o.metrics.RecordChatEvent(string(ev.Role), string(ev.Kind))
}

// History returns a copy of the conversation so far
func (o *Orchestrator) History() []types.ChatEvent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]types.ChatEvent(nil), o.history...)
}

// HistoryAfter returns events newer than the given event ID
func (o *Orchestrator) HistoryAfter(after string) []types.ChatEvent {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := []types.ChatEvent{}
	for _, ev := range o.history {
		// IDs are ULIDs and sort by creation
		if after == "" || ev.ID > after {
			out = append(out, ev)
		}
	}
	return out
}

// Status returns the presentation status
func (o *Orchestrator) Status() types.Status {
	o.mu.RLock()
	status := types.Status{
		Waiting:       o.waiting,
		Authenticated: o.authenticated,
		User:          o.profile,
	}
	o.mu.RUnlock()

	status.ConnectionState = o.transport.State()
	if o.recorder != nil {
		status.Recording = o.recorder.State() == audio.StateRecording
	}
	return status
}

// Subscribe streams new events until cancel is called or Run returns
func (o *Orchestrator) Subscribe() (<-chan types.ChatEvent, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan types.ChatEvent, o.subBuffer)
	select {
	case <-o.done:
		close(ch)
		return ch, func() {}
	default:
	}

	key := o.nextSub
	o.nextSub++
	o.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if _, ok := o.subs[key]; ok {
				delete(o.subs, key)
				close(ch)
			}
		})
	}
}
