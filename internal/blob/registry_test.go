package blob

import (
	"strings"
	"sync"
	"testing"

	"github.com/GriffinCanCode/SophiChat/client/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal EBML header followed by the webm doctype
var webmHeader = []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81, 0x01, 0x42, 0xF7, 0x81, 0x01, 0x42, 0xF2, 0x81, 0x04, 0x42, 0xF3, 0x81, 0x08, 0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'}

func TestPutGet(t *testing.T) {
	reg := NewRegistry()

	ref, err := reg.Put("audio/ogg", []byte("OggS payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ref), "blob_"))
	_, err = id.Parse(string(ref))
	assert.NoError(t, err)

	entry, err := reg.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", entry.MIMEType)
	assert.Equal(t, []byte("OggS payload"), entry.Data)
	assert.Equal(t, 12, entry.Size())
}

func TestPutDefaultsAndDetects(t *testing.T) {
	reg := NewRegistry()

	ref, err := reg.Put("", webmHeader)
	require.NoError(t, err)

	entry, err := reg.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, DefaultMIMEType, entry.MIMEType)
	assert.Contains(t, entry.Detected, "webm")
}

func TestPutCopiesData(t *testing.T) {
	reg := NewRegistry()
	data := []byte("abc")

	ref, err := reg.Put("audio/webm", data)
	require.NoError(t, err)
	data[0] = 'z'

	entry, _ := reg.Get(ref)
	assert.Equal(t, []byte("abc"), entry.Data)
}

func TestPutEmpty(t *testing.T) {
	_, err := NewRegistry().Put("audio/webm", nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRevoke(t *testing.T) {
	reg := NewRegistry()
	a, _ := reg.Put("audio/webm", []byte("a"))
	b, _ := reg.Put("audio/webm", []byte("b"))

	reg.Revoke(a)
	reg.Revoke(a)
	_, err := reg.Get(a)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, reg.RevokeAll())
	_, err = reg.Get(b)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, reg.RevokeAll())
}

func TestConcurrentPut(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Put("audio/webm", []byte{1, 2, 3})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, reg.Len())
}
