package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	assert.NotEqual(t, id1.String(), id2.String())
}

func TestGenerateString(t *testing.T) {
	id := NewGenerator().GenerateString()
	assert.Len(t, id, 26)
}

func TestGenerateIsMonotonic(t *testing.T) {
	gen := NewGenerator()

	ids := make([]string, 500)
	for i := range ids {
		ids[i] = gen.GenerateWithPrefix(EventPrefix)
	}

	assert.True(t, sort.StringsAreSorted(ids), "IDs must sort in generation order")
}

func TestTypedIDGeneration(t *testing.T) {
	tests := []struct {
		prefix string
		id     string
	}{
		{"evt", NewEventID().String()},
		{"blob", NewBlobID().String()},
	}

	for _, tt := range tests {
		parts := strings.Split(tt.id, "_")
		require.Len(t, parts, 2, "ID should have format 'prefix_ulid': %s", tt.id)
		assert.Equal(t, tt.prefix, parts[0])
		assert.True(t, IsValid(parts[1]))
	}
}

func TestRecordingIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(NewRecordingID().String())
	assert.NoError(t, err)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(NewGenerator().GenerateString()))

	invalidIDs := []string{
		"",
		"invalid",
		"1234567890",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzz",
	}
	for _, id := range invalidIDs {
		assert.False(t, IsValid(id), "ID should be invalid: %s", id)
	}
}

func TestParseAcceptsPrefix(t *testing.T) {
	raw := NewGenerator().Generate()

	parsed, err := Parse("evt_" + raw.String())
	require.NoError(t, err)
	assert.Equal(t, raw, parsed)
}

func TestTimestamp(t *testing.T) {
	before := time.Now()
	id := NewEventID()
	after := time.Now()

	ts, err := Timestamp(id.String())
	require.NoError(t, err)

	// ULID timestamps have millisecond precision
	assert.GreaterOrEqual(t, ts.UnixMilli(), before.UnixMilli())
	assert.LessOrEqual(t, ts.UnixMilli(), after.UnixMilli())
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan string, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.GenerateString()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[string]bool)
	for id := range idChan {
		assert.False(t, seen[id], "duplicate ID: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines*idsPerGoroutine)
}
