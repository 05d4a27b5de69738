// Package preview tracks open previews and throttles their refreshes.
package preview

import (
	"sync"

	"github.com/google/uuid"
)

// IDMap assigns a stable view ID to each previewed source path.
type IDMap struct {
	mu    sync.RWMutex
	ids   map[string]string
	paths map[string]string
}

func NewIDMap() *IDMap {
	return &IDMap{ids: make(map[string]string), paths: make(map[string]string)}
}

// Add returns the ID for path, creating one if needed.
func (m *IDMap) Add(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[path]; ok {
		return id
	}
	id := uuid.NewString()
	m.ids[path] = id
	m.paths[id] = path
	return id
}

// Get returns the ID for path.
func (m *IDMap) Get(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[path]
	return id, ok
}

// Path returns the source path for id.
func (m *IDMap) Path(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.paths[id]
	return p, ok
}

func (m *IDMap) Has(path string) bool {
	_, ok := m.Get(path)
	return ok
}

// Remove forgets path and returns its ID, if any.
func (m *IDMap) Remove(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[path]
	if ok {
		delete(m.ids, path)
		delete(m.paths, id)
	}
	return id, ok
}
