package preview

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDMap(t *testing.T) {
	m := NewIDMap()
	id := m.Add("/docs/index.rst")
	require.NotEmpty(t, id)

	assert.Equal(t, id, m.Add("/docs/index.rst"), "stable per path")
	assert.NotEqual(t, id, m.Add("/docs/other.rst"))
	assert.True(t, m.Has("/docs/index.rst"))

	p, ok := m.Path(id)
	assert.True(t, ok)
	assert.Equal(t, "/docs/index.rst", p)

	removed, ok := m.Remove("/docs/index.rst")
	assert.True(t, ok)
	assert.Equal(t, id, removed)
	assert.False(t, m.Has("/docs/index.rst"))
	_, ok = m.Path(id)
	assert.False(t, ok)
}

type collector[T any] struct {
	mu  sync.Mutex
	got []T
	ch  chan struct{}
}

func newCollector[T any]() *collector[T] {
	return &collector[T]{ch: make(chan struct{}, 16)}
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	c.got = append(c.got, v)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector[T]) values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.got...)
}

func (c *collector[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fire")
	}
}

func TestDebouncer_DeliversLatest(t *testing.T) {
	c := newCollector[int]()
	d := NewDebouncer(20*time.Millisecond, c.add)

	d.Trigger(1)
	d.Trigger(2)
	d.Trigger(3)
	assert.True(t, d.Pending())

	c.wait(t)
	assert.Equal(t, []int{3}, c.values())
	assert.False(t, d.Pending())

	d.Trigger(4)
	c.wait(t)
	assert.Equal(t, []int{3, 4}, c.values())
}

func TestDebouncer_Stop(t *testing.T) {
	c := newCollector[int]()
	d := NewDebouncer(10*time.Millisecond, c.add)
	d.Trigger(1)
	d.Stop()
	d.Trigger(2)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.values())
	assert.False(t, d.Pending())
}

func TestManager(t *testing.T) {
	c := newCollector[Document]()
	m := NewManager(10*time.Millisecond, c.add)

	assert.False(t, m.Trigger(Document{Path: "/a.rst"}), "no view yet")

	v := m.Open("/a.rst")
	assert.Same(t, v, m.Open("/a.rst"))
	m.Open("/b.md")
	assert.Equal(t, []string{"/a.rst", "/b.md"}, m.Paths())

	assert.True(t, m.Trigger(Document{Path: "/a.rst", Source: []byte("one")}))
	assert.True(t, m.Trigger(Document{Path: "/a.rst", Source: []byte("two")}))
	c.wait(t)

	got := c.values()
	require.Len(t, got, 1)
	assert.Equal(t, "two", string(got[0].Source))

	m.Close("/a.rst")
	_, ok := m.Lookup("/a.rst")
	assert.False(t, ok)

	reopened := m.Open("/a.rst")
	assert.NotEqual(t, v.ID, reopened.ID)

	m.CloseAll()
	assert.Empty(t, m.Paths())
}
