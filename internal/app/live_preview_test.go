package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-live-rst/internal/config"
	"go-live-rst/internal/contracts"
	"go-live-rst/internal/preview"
	httptransport "go-live-rst/internal/transport/http"
)

type fakeProvider struct {
	name string
	err  error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Render(_ context.Context, path string, source []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "<p>" + string(source) + "</p>", nil
}

type fakePublisher struct {
	mu      sync.Mutex
	updates []httptransport.Update
	cursors []contracts.CursorMessage
	stopped bool
	notify  chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{notify: make(chan struct{}, 16)}
}

func (f *fakePublisher) StartOrUpdate(u httptransport.Update) error {
	f.mu.Lock()
	f.updates = append(f.updates, u)
	f.mu.Unlock()
	f.notify <- struct{}{}
	return nil
}

func (f *fakePublisher) UpdateCursor(msg contracts.CursorMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, msg)
	return nil
}

func (f *fakePublisher) SetGoToLineHandler(func(contracts.GoToLineMessage)) {}
func (f *fakePublisher) URL() string                                       { return "http://preview" }

func (f *fakePublisher) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakePublisher) Updates() []httptransport.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]httptransport.Update(nil), f.updates...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPreview(pub *fakePublisher, rst *fakeProvider, onError func(error)) *LivePreview {
	return NewLivePreview(Options{
		Providers: map[string]Provider{"RST": rst},
		Publisher: pub,
		Debounce:  10 * time.Millisecond,
		Logger:    discardLogger(),
		OnError:   onError,
	})
}

func TestOpenPublishes(t *testing.T) {
	pub := newFakePublisher()
	lp := newTestPreview(pub, &fakeProvider{name: "sphinx"}, nil)

	v, err := lp.Open(context.Background(), preview.Document{Path: "/d/index.rst", Filetype: "rst", Source: []byte("hello")})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, []string{"/d/index.rst"}, lp.Views())

	got := pub.Updates()
	require.Len(t, got, 1)
	assert.Equal(t, "<p>hello</p>", got[0].HTML)
	assert.Equal(t, "sphinx", got[0].Provider)
	assert.False(t, got[0].Failed)
}

func TestOpenUnsupportedFiletype(t *testing.T) {
	lp := newTestPreview(newFakePublisher(), &fakeProvider{name: "sphinx"}, nil)
	assert.False(t, lp.Supports("python"))
	_, err := lp.Open(context.Background(), preview.Document{Path: "/x.py", Filetype: "python"})
	assert.Error(t, err)
	assert.Empty(t, lp.Views())
}

func TestRenderFailurePublishesErrorPage(t *testing.T) {
	pub := newFakePublisher()
	lp := newTestPreview(pub, &fakeProvider{name: "docutils", err: errors.New("rst2html5 <missing>")}, nil)

	err := lp.PublishSource(context.Background(), preview.Document{Path: "/d/a.rst", Filetype: "rst"})
	require.Error(t, err)

	got := pub.Updates()
	require.Len(t, got, 1)
	assert.True(t, got[0].Failed)
	assert.Contains(t, got[0].HTML, "rst2html5 &lt;missing&gt;")
}

func TestUpdateIsDebounced(t *testing.T) {
	pub := newFakePublisher()
	var mu sync.Mutex
	var errs []error
	lp := newTestPreview(pub, &fakeProvider{name: "sphinx"}, func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})

	doc := preview.Document{Path: "/d/index.rst", Filetype: "rst"}
	assert.False(t, lp.Update(doc), "not open yet")

	_, err := lp.Open(context.Background(), doc)
	require.NoError(t, err)
	<-pub.notify

	doc.Source = []byte("one")
	assert.True(t, lp.Update(doc))
	doc.Source = []byte("two")
	assert.True(t, lp.Update(doc))

	select {
	case <-pub.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced refresh never ran")
	}
	got := pub.Updates()
	require.Len(t, got, 2)
	assert.Equal(t, "<p>two</p>", got[1].HTML)

	mu.Lock()
	assert.Empty(t, errs)
	mu.Unlock()
}

func TestStop(t *testing.T) {
	pub := newFakePublisher()
	lp := newTestPreview(pub, &fakeProvider{name: "sphinx"}, nil)
	_, err := lp.Open(context.Background(), preview.Document{Path: "/d/index.rst", Filetype: "rst"})
	require.NoError(t, err)

	require.NoError(t, lp.Stop())
	assert.Empty(t, lp.Views())
	assert.True(t, pub.stopped)
}

func TestRenderDoesNotPublish(t *testing.T) {
	pub := newFakePublisher()
	lp := newTestPreview(pub, &fakeProvider{name: "sphinx"}, nil)

	html, err := lp.Render(context.Background(), preview.Document{Path: "/d/a.rst", Filetype: "rst", Source: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", html)
	assert.Empty(t, pub.Updates())

	_, err = lp.Render(context.Background(), preview.Document{Filetype: "tex"})
	assert.Error(t, err)
}

func TestPublishCursor(t *testing.T) {
	pub := newFakePublisher()
	lp := newTestPreview(pub, &fakeProvider{name: "sphinx"}, nil)
	require.NoError(t, lp.PublishCursor(3, 7))
	require.Len(t, pub.cursors, 1)
	assert.Equal(t, contracts.CursorMessage{Type: contracts.MessageTypeCursor, Line: 3, Col: 7}, pub.cursors[0])
}

func TestNewPicksProvider(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	lp := New(cfg, discardLogger(), nil, nil)
	assert.Equal(t, config.ProviderDocutils, lp.providers[FiletypeRST].Name())
	assert.True(t, lp.Supports(FiletypeMarkdown))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf.py"), nil, 0o644))
	lp = New(cfg, discardLogger(), nil, nil)
	assert.Equal(t, config.ProviderSphinx, lp.providers[FiletypeRST].Name())
}
