package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrPermissionDenied means the microphone could not be opened
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoCaptureCommand means no capture command was configured
	ErrNoCaptureCommand = errors.New("no capture command configured")
)

// Source opens a stream of encoded audio from some input device
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// MIMEType is the container the stream is encoded in, if known
	MIMEType() string
}

// deniedMarkers are stderr fragments of capture tools that could not reach a device
var deniedMarkers = []string{
	"permission denied",
	"operation not permitted",
	"access denied",
	"no such device",
	"no such file or directory",
	"device or resource busy",
	"connection refused",
}

// CommandSource captures audio from an external encoder writing to stdout,
// such as ffmpeg reading the default PulseAudio input.
type CommandSource struct {
	Command []string
	MIME    string
	// Probe is how long a freshly started command must survive to count
	// as having opened the device
	Probe time.Duration
}

// MIMEType returns the configured container type
func (s *CommandSource) MIMEType() string {
	return s.MIME
}

// Open starts the command and returns its stdout
func (s *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if len(s.Command) == 0 {
		return nil, ErrNoCaptureCommand
	}
	probe := s.Probe
	if probe <= 0 {
		probe = 300 * time.Millisecond
	}

	pr, pw := io.Pipe()
	stream := &commandStream{
		cmd:    exec.Command(s.Command[0], s.Command[1:]...),
		reader: pr,
		done:   make(chan struct{}),
	}
	stream.cmd.Stdout = pw
	stream.cmd.Stderr = &stream.stderr

	if err := stream.cmd.Start(); err != nil {
		pw.Close()
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("failed to start capture command: %w", err)
	}

	go func() {
		stream.waitErr = stream.cmd.Wait()
		pw.Close()
		close(stream.done)
	}()

	select {
	case <-stream.done:
		if stream.waitErr != nil {
			return nil, classifyExit(stream.stderr.String(), stream.waitErr)
		}
	case <-time.After(probe):
	case <-ctx.Done():
		stream.Close()
		return nil, ctx.Err()
	}
	return stream, nil
}

func classifyExit(stderr string, err error) error {
	lower := strings.ToLower(stderr)
	for _, marker := range deniedMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
		}
	}
	return fmt.Errorf("capture command exited: %w", err)
}

type commandStream struct {
	cmd     *exec.Cmd
	reader  *io.PipeReader
	stderr  syncBuffer
	done    chan struct{}
	waitErr error
	once    sync.Once
}

func (c *commandStream) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

// Close asks the encoder to finish its container, then kills it if it lingers.
// Output written before exit remains readable.
func (c *commandStream) Close() error {
	c.once.Do(func() {
		select {
		case <-c.done:
			return
		default:
		}
		c.cmd.Process.Signal(os.Interrupt)
		select {
		case <-c.done:
		case <-time.After(2 * time.Second):
			c.cmd.Process.Kill()
		}
	})
	return nil
}

// syncBuffer guards stderr, which exec writes from its own goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// FileSource streams a prerecorded audio file
type FileSource struct {
	Path string
	MIME string
}

// MIMEType returns the declared type, sniffing the file when none is set
func (s *FileSource) MIMEType() string {
	if s.MIME != "" {
		return s.MIME
	}
	mt, err := mimetype.DetectFile(s.Path)
	if err != nil {
		return ""
	}
	return mt.String()
}

// Open opens the file for reading
func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	return f, nil
}

// StaticSource serves fixed bytes, or fails with Err
type StaticSource struct {
	Data []byte
	MIME string
	Err  error
}

func (s *StaticSource) MIMEType() string { return s.MIME }

func (s *StaticSource) Open(_ context.Context) (io.ReadCloser, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}
