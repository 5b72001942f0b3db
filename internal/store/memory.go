package store

import (
	"context"
	"sync"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// Memory implements all three stores in process memory. It backs tests and
// dry runs; scans stream records in insertion order so runs stay
// deterministic.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]model.NamespaceRecord
	order      []string
	searches   map[string]model.SearchProfileRecord
	caches     map[string][]string
	indexed    bool
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		namespaces: make(map[string]model.NamespaceRecord),
		searches:   make(map[string]model.SearchProfileRecord),
		caches:     make(map[string][]string),
	}
}

// SaveNamespace upserts a record by username.
func (m *Memory) SaveNamespace(_ context.Context, record model.NamespaceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.namespaces[record.Username]; !exists {
		m.order = append(m.order, record.Username)
	}
	m.namespaces[record.Username] = record
	return nil
}

// ForEachNamespace streams records in insertion order. The snapshot is taken
// under the read lock so fn may save into the store without deadlocking.
func (m *Memory) ForEachNamespace(_ context.Context, fn func(model.NamespaceRecord) error) error {
	m.mu.RLock()
	records := make([]model.NamespaceRecord, 0, len(m.order))
	for _, username := range m.order {
		records = append(records, m.namespaces[username])
	}
	m.mu.RUnlock()

	for _, record := range records {
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// SaveSearchProfile upserts a search record by username.
func (m *Memory) SaveSearchProfile(_ context.Context, record model.SearchProfileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches[record.Username] = record
	return nil
}

// SaveCache replaces the named cache document.
func (m *Memory) SaveCache(_ context.Context, name string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = append([]string(nil), values...)
	return nil
}

// EnsureNameIndex records that the index hint was requested.
func (m *Memory) EnsureNameIndex(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

// Namespaces returns all namespace records in insertion order.
func (m *Memory) Namespaces() []model.NamespaceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]model.NamespaceRecord, 0, len(m.order))
	for _, username := range m.order {
		records = append(records, m.namespaces[username])
	}
	return records
}

// SearchProfile returns the search record for username, if any.
func (m *Memory) SearchProfile(username string) (model.SearchProfileRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.searches[username]
	return record, ok
}

// SearchProfileCount returns the number of stored search records.
func (m *Memory) SearchProfileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.searches)
}

// Cache returns the values of the named cache document.
func (m *Memory) Cache(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.caches[name]...)
}

// NameIndexEnsured reports whether the index hint was requested.
func (m *Memory) NameIndexEnsured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}
