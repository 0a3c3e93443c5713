package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SophiChat/client/internal/shared/id"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// StatusNoAudio is reported when a recording captured nothing
const StatusNoAudio = "no audio detected"

// Stop reasons
const (
	ReasonStopped     = "stopped"
	ReasonMaxDuration = "max_duration"
)

// State of the controller
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Blob is one finished recording
type Blob struct {
	ID       id.RecordingID
	MIMEType string
	Data     []byte
	Duration time.Duration
	Chunks   int
	Reason   string
}

// Empty reports whether the recording captured no bytes
func (b Blob) Empty() bool {
	return len(b.Data) == 0
}

// Sender is the outbound primitive of the transport
type Sender interface {
	Send(env types.OutboundEnvelope) error
}

// BlobStore registers audio for local playback
type BlobStore interface {
	Put(mimeType string, data []byte) (types.AudioRef, error)
}

// TransmitResult describes what Transmit did with a blob
type TransmitResult struct {
	// Event is the local user audio event, nil for empty recordings
	Event *types.ChatEvent
	Sent  bool
	// Status is a message for the user when nothing was sent
	Status string
	Err    error
}

// Options configures a Controller
type Options struct {
	Source        Source
	Sender        Sender
	Blobs         BlobStore
	Handoff       func(Blob)
	ChunkInterval time.Duration
	MaxDuration   time.Duration
	MIMEType      string
	Logger        *logging.Logger
	Metrics       *monitoring.Metrics
}

// Controller records at most one clip at a time
type Controller struct {
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu  sync.Mutex
	rec *recording
}

// recording is the transient state of one capture
type recording struct {
	id       id.RecordingID
	started  time.Time
	stream   io.ReadCloser
	mimeType string
	ceiling  *time.Timer
	stop     chan struct{}
	readDone chan struct{}

	mu      sync.Mutex
	pending bytes.Buffer
	chunks  [][]byte
}

// NewController creates an idle controller
func NewController(opts Options) *Controller {
	if opts.ChunkInterval <= 0 {
		opts.ChunkInterval = 250 * time.Millisecond
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		opts:    opts,
		logger:  logger.Named("audio"),
		metrics: opts.Metrics,
	}
}

// State returns whether a recording is in progress
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec != nil {
		return StateRecording
	}
	return StateIdle
}

// Start opens the source and begins buffering chunks
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec != nil {
		return ErrAlreadyRecording
	}
	if c.opts.Source == nil {
		return fmt.Errorf("%w: no audio source", ErrPermissionDenied)
	}

	stream, err := c.opts.Source.Open(ctx)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrPermissionDenied) {
			result = "denied"
		}
		c.metrics.RecordRecording(result, 0, 0)
		c.logger.Warn("Could not open microphone", zap.Error(err))
		return err
	}

	mimeType := c.opts.Source.MIMEType()
	if mimeType == "" {
		mimeType = c.opts.MIMEType
	}

	rec := &recording{
		id:       id.NewRecordingID(),
		started:  time.Now(),
		stream:   stream,
		mimeType: mimeType,
		stop:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	rec.ceiling = time.AfterFunc(c.opts.MaxDuration, func() {
		c.autoStop(rec)
	})
	c.rec = rec

	go rec.read()
	go rec.flushEvery(c.opts.ChunkInterval)

	c.logger.Info("Recording started", zap.String("recording_id", string(rec.id)))
	return nil
}

// Stop finalizes the current recording and hands the blob off
func (c *Controller) Stop() error {
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	c.mu.Unlock()

	if rec == nil {
		return ErrNotRecording
	}
	c.finish(rec, ReasonStopped)
	return nil
}

// Abort discards the current recording without a hand-off
func (c *Controller) Abort() {
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	c.mu.Unlock()

	if rec != nil {
		rec.finalize()
		c.metrics.RecordRecording("aborted", time.Since(rec.started), 0)
		c.logger.Info("Recording aborted", zap.String("recording_id", string(rec.id)))
	}
}

func (c *Controller) autoStop(rec *recording) {
	c.mu.Lock()
	if c.rec != rec {
		c.mu.Unlock()
		return
	}
	c.rec = nil
	c.mu.Unlock()

	c.logger.Info("Recording stopped automatically",
		zap.String("recording_id", string(rec.id)),
		zap.String("reason", ReasonMaxDuration),
		zap.Duration("max_duration", c.opts.MaxDuration))
	c.finish(rec, ReasonMaxDuration)
}

func (c *Controller) finish(rec *recording, reason string) {
	blob := rec.finalize()
	blob.Reason = reason

	c.metrics.RecordRecording(reason, blob.Duration, len(blob.Data))
	c.logger.Info("Recording finished",
		zap.String("recording_id", string(blob.ID)),
		zap.String("reason", reason),
		zap.Int("chunks", blob.Chunks),
		zap.Int("bytes", len(blob.Data)),
		zap.Duration("duration", blob.Duration))

	if c.opts.Handoff != nil {
		c.opts.Handoff(blob)
	}
}

// Transmit sends a finished blob and produces the local echo event
func (c *Controller) Transmit(blob Blob) TransmitResult {
	if blob.Empty() {
		c.metrics.RecordRecording("empty", blob.Duration, 0)
		return TransmitResult{Status: StatusNoAudio}
	}

	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = mimetype.Detect(blob.Data).String()
	}

	ev := &types.ChatEvent{
		ID:          string(id.NewEventID()),
		Role:        types.RoleUser,
		Kind:        types.KindAudio,
		Attachments: []string{},
		CreatedAt:   time.Now(),
	}
	if c.opts.Blobs != nil {
		ref, err := c.opts.Blobs.Put(mimeType, blob.Data)
		if err != nil {
			return TransmitResult{Err: err, Status: err.Error()}
		}
		ev.AudioRef = ref
	}

	result := TransmitResult{Event: ev}
	if c.opts.Sender == nil {
		result.Err = errors.New("no sender")
		return result
	}

	env := types.NewAudioEnvelope(Encode(blob.Data), mimeType, len(blob.Data))
	if err := c.opts.Sender.Send(env); err != nil {
		c.logger.Warn("Audio not sent",
			zap.String("recording_id", string(blob.ID)),
			zap.Error(err))
		result.Err = err
		return result
	}
	result.Sent = true
	return result
}

// Encode returns the base64 form used on the wire
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode
func Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func (r *recording) read() {
	defer close(r.readDone)

	buf := make([]byte, 32*1024)
	for {
		n, err := r.stream.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.pending.Write(buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (r *recording) flushEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.stop:
			return
		}
	}
}

// flush moves buffered bytes into a new chunk
func (r *recording) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending.Len() == 0 {
		return
	}
	chunk := make([]byte, r.pending.Len())
	copy(chunk, r.pending.Bytes())
	r.pending.Reset()
	r.chunks = append(r.chunks, chunk)
}

func (r *recording) finalize() Blob {
	r.ceiling.Stop()
	close(r.stop)
	r.stream.Close()

	select {
	case <-r.readDone:
	case <-time.After(3 * time.Second):
	}
	r.flush()

	r.mu.Lock()
	defer r.mu.Unlock()
	return Blob{
		ID:       r.id,
		MIMEType: r.mimeType,
		Data:     bytes.Join(r.chunks, nil),
		Duration: time.Since(r.started),
		Chunks:   len(r.chunks),
	}
}
