package store

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps documents in memory. Data is lost when the process
// exits.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]revision // name -> revisions, oldest first
	closed bool
}

type revision struct {
	data      []byte
	number    int
	timestamp time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]revision)}
}

// Save implements Store.
func (m *MemoryStore) Save(name string, data []byte) error {
	if name == "" {
		return ErrInvalidName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	revs := m.docs[name]
	number := 1
	if len(revs) > 0 {
		number = revs[len(revs)-1].number + 1
	}
	m.docs[name] = append(revs, revision{
		data:      slices.Clone(data),
		number:    number,
		timestamp: time.Now().UTC(),
	})
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	revs := m.docs[name]
	if len(revs) == 0 {
		return nil, ErrNotFound
	}
	return slices.Clone(revs[len(revs)-1].data), nil
}

// LoadRevision implements Store.
func (m *MemoryStore) LoadRevision(name string, number int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	for _, r := range m.docs[name] {
		if r.number == number {
			return slices.Clone(r.data), nil
		}
	}
	return nil, ErrNotFound
}

// List implements Store.
func (m *MemoryStore) List() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	infos := make([]Info, 0, len(m.docs))
	for name, revs := range m.docs {
		infos = append(infos, info(name, revs[len(revs)-1]))
	}
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return infos, nil
}

// Revisions implements Store.
func (m *MemoryStore) Revisions(name string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	revs := m.docs[name]
	infos := make([]Info, 0, len(revs))
	for _, r := range revs {
		infos = append(infos, info(name, r))
	}
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.docs, name)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.docs = nil
	return nil
}

// Len returns the number of stored revisions across all names.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, revs := range m.docs {
		n += len(revs)
	}
	return n
}

func info(name string, r revision) Info {
	return Info{Name: name, Revision: r.number, Timestamp: r.timestamp, Size: int64(len(r.data))}
}
