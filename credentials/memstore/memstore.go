package memstore

import (
	"sync"

	"github.com/jrsteele09/go-storefront-client/credentials"
)

var _ credentials.Store = (*MemStore)(nil)

// MemStore keeps the credential in process memory.
type MemStore struct {
	values map[credentials.Key]string
	lock   sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		values: make(map[credentials.Key]string),
	}
}

func (m *MemStore) Get(key credentials.Key) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.values[key]
	return v, ok
}

func (m *MemStore) Set(key credentials.Key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemStore) Remove(key credentials.Key) {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.values, key)
}

func (m *MemStore) ClearAll() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, k := range credentials.Keys {
		delete(m.values, k)
	}
}

// Len returns the number of stored entries.
func (m *MemStore) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.values)
}
