package preview

import (
	"slices"
	"sync"
	"time"
)

// Document is a snapshot of an editor buffer.
type Document struct {
	Path     string
	Filetype string
	Source   []byte
}

// View is one previewed source file.
type View struct {
	ID   string
	Path string

	updates *Debouncer[Document]
}

// Manager owns the open views. Every view refreshes through its own
// debouncer, which calls render with the latest document.
type Manager struct {
	delay  time.Duration
	render func(Document)
	ids    *IDMap

	mu    sync.Mutex
	views map[string]*View
}

func NewManager(delay time.Duration, render func(Document)) *Manager {
	return &Manager{
		delay:  delay,
		render: render,
		ids:    NewIDMap(),
		views:  make(map[string]*View),
	}
}

// Open returns the view for path, creating it on first use.
func (m *Manager) Open(path string) *View {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.views[path]; ok {
		return v
	}
	v := &View{
		ID:      m.ids.Add(path),
		Path:    path,
		updates: NewDebouncer(m.delay, m.render),
	}
	m.views[path] = v
	return v
}

func (m *Manager) Lookup(path string) (*View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[path]
	return v, ok
}

// Trigger schedules a refresh of doc's view. It reports false when no view
// is open for doc.Path.
func (m *Manager) Trigger(doc Document) bool {
	v, ok := m.Lookup(doc.Path)
	if !ok {
		return false
	}
	v.updates.Trigger(doc)
	return true
}

// Close stops and forgets the view for path.
func (m *Manager) Close(path string) {
	m.mu.Lock()
	v, ok := m.views[path]
	delete(m.views, path)
	m.mu.Unlock()

	if ok {
		v.updates.Stop()
		m.ids.Remove(path)
	}
}

// CloseAll stops every view.
func (m *Manager) CloseAll() {
	for _, p := range m.Paths() {
		m.Close(p)
	}
}

// Paths returns the open source paths in sorted order.
func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.views))
	for p := range m.views {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
