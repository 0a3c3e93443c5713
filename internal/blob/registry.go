package blob

import (
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/shared/id"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMIMEType is assumed when a producer declares none
const DefaultMIMEType = "audio/webm"

var (
	ErrNotFound = errors.New("blob not found")
	ErrEmpty    = errors.New("blob is empty")
)

// Entry is one playable binary held by the registry
type Entry struct {
	Ref      types.AudioRef
	MIMEType string
	// Detected is the type sniffed from the content, which may disagree
	// with the declared one
	Detected  string
	Data      []byte
	CreatedAt time.Time
}

// Size returns the payload length in bytes
func (e *Entry) Size() int {
	return len(e.Data)
}

// Registry hands out opaque references to in-memory audio blobs.
// References stay valid until revoked.
type Registry struct {
	mu      sync.RWMutex
	entries map[types.AudioRef]*Entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[types.AudioRef]*Entry)}
}

// Put stores a copy of data and returns its reference
func (r *Registry) Put(mimeType string, data []byte) (types.AudioRef, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	entry := &Entry{
		Ref:       types.AudioRef(id.NewBlobID()),
		MIMEType:  mimeType,
		Detected:  mimetype.Detect(data).String(),
		Data:      append([]byte(nil), data...),
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.entries[entry.Ref] = entry
	r.mu.Unlock()

	return entry.Ref, nil
}

// Get returns the entry behind a reference
func (r *Registry) Get(ref types.AudioRef) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Revoke releases one reference; unknown references are ignored
func (r *Registry) Revoke(ref types.AudioRef) {
	r.mu.Lock()
	delete(r.entries, ref)
	r.mu.Unlock()
}

// RevokeAll releases every reference and returns how many were held
func (r *Registry) RevokeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	r.entries = make(map[types.AudioRef]*Entry)
	return n
}

// Len returns the number of live references
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
