package credentials

import (
	"sync"

	"github.com/GriffinCanCode/SophiChat/client/internal/types"
)

// MemoryStore keeps credentials for the lifetime of the process only
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Put(token string) error { return m.set(KeyToken, token) }

func (m *MemoryStore) Get() (string, bool, error) { return m.get(KeyToken) }

func (m *MemoryStore) PutProfile(profile *types.UserProfile) error { return putProfile(m, profile) }

func (m *MemoryStore) Profile() (*types.UserProfile, bool, error) { return getProfile(m) }

func (m *MemoryStore) Clear() error { return m.del(KeyToken, KeyProfile) }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) del(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}
