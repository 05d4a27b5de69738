package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-live-rst/internal/build"
	"go-live-rst/internal/contracts"
	"go-live-rst/internal/preview"
	httptransport "go-live-rst/internal/transport/http"
)

// Provider renders one document to an HTML fragment.
type Provider interface {
	Name() string
	Render(ctx context.Context, path string, source []byte) (string, error)
}

// Publisher delivers rendered fragments to the browser.
type Publisher interface {
	StartOrUpdate(u httptransport.Update) error
	UpdateCursor(msg contracts.CursorMessage) error
	SetGoToLineHandler(fn func(contracts.GoToLineMessage))
	URL() string
	Stop() error
}

// LivePreview is a coordinator between document rendering and HTTP delivery.
type LivePreview struct {
	providers map[string]Provider // by filetype
	publisher Publisher
	views     *preview.Manager
	logger    *slog.Logger
	timeout   time.Duration
	onError   func(error)
}

// Options configures NewLivePreview.
type Options struct {
	Providers map[string]Provider
	Publisher Publisher
	Debounce  time.Duration
	Timeout   time.Duration // per render; 0 = none
	Logger    *slog.Logger
	OnError   func(error) // called for failed debounced renders
}

func NewLivePreview(opts Options) *LivePreview {
	s := &LivePreview{
		providers: make(map[string]Provider, len(opts.Providers)),
		publisher: opts.Publisher,
		logger:    opts.Logger,
		timeout:   opts.Timeout,
		onError:   opts.OnError,
	}
	for ft, p := range opts.Providers {
		s.providers[strings.ToLower(ft)] = p
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.views = preview.NewManager(opts.Debounce, s.refresh)
	return s
}

func (s *LivePreview) URL() string {
	return s.publisher.URL()
}

// Supports reports whether a provider is registered for filetype.
func (s *LivePreview) Supports(filetype string) bool {
	_, ok := s.providers[strings.ToLower(filetype)]
	return ok
}

// Open starts previewing doc and renders it immediately.
func (s *LivePreview) Open(ctx context.Context, doc preview.Document) (*preview.View, error) {
	if !s.Supports(doc.Filetype) {
		return nil, fmt.Errorf("no preview provider for filetype %q", doc.Filetype)
	}
	v := s.views.Open(doc.Path)
	return v, s.PublishSource(ctx, doc)
}

// Update schedules a debounced refresh. It reports false when doc has no
// open preview.
func (s *LivePreview) Update(doc preview.Document) bool {
	return s.views.Trigger(doc)
}

// Close stops previewing path.
func (s *LivePreview) Close(path string) {
	s.views.Close(path)
}

// Views returns the paths currently previewed.
func (s *LivePreview) Views() []string {
	return s.views.Paths()
}

// Stop closes every view and shuts the server down.
func (s *LivePreview) Stop() error {
	s.views.CloseAll()
	return s.publisher.Stop()
}

// Render returns the HTML fragment for doc without publishing it.
func (s *LivePreview) Render(ctx context.Context, doc preview.Document) (string, error) {
	p, ok := s.providers[strings.ToLower(doc.Filetype)]
	if !ok {
		return "", fmt.Errorf("no preview provider for filetype %q", doc.Filetype)
	}
	return s.render(ctx, p, doc)
}

func (s *LivePreview) render(ctx context.Context, p Provider, doc preview.Document) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return p.Render(ctx, doc.Path, doc.Source)
}

// PublishSource renders doc and publishes the result. A failed render
// publishes an error page and returns the error.
func (s *LivePreview) PublishSource(ctx context.Context, doc preview.Document) error {
	p, ok := s.providers[strings.ToLower(doc.Filetype)]
	if !ok {
		return fmt.Errorf("no preview provider for filetype %q", doc.Filetype)
	}

	start := time.Now()
	fragment, err := s.render(ctx, p, doc)
	if err != nil {
		s.logger.Warn("render failed", "provider", p.Name(), "path", doc.Path, "err", err)
		if pubErr := s.publisher.StartOrUpdate(httptransport.Update{
			HTML:     build.ErrorSnippet(err),
			Path:     doc.Path,
			Provider: p.Name(),
			Failed:   true,
		}); pubErr != nil {
			return fmt.Errorf("publishing error page: %w", pubErr)
		}
		return err
	}
	s.logger.Debug("rendered", "provider", p.Name(), "path", doc.Path, "elapsed", time.Since(start))

	return s.publisher.StartOrUpdate(httptransport.Update{
		HTML:     fragment,
		Path:     doc.Path,
		Provider: p.Name(),
	})
}

func (s *LivePreview) PublishCursor(line int, col int) error {
	return s.publisher.UpdateCursor(contracts.CursorMessage{
		Type: contracts.MessageTypeCursor,
		Line: line,
		Col:  col,
	})
}

// SetGoToLineHandler forwards the handler registration to the transport.
func (s *LivePreview) SetGoToLineHandler(fn func(contracts.GoToLineMessage)) {
	s.publisher.SetGoToLineHandler(fn)
}

func (s *LivePreview) refresh(doc preview.Document) {
	if err := s.PublishSource(context.Background(), doc); err != nil && s.onError != nil {
		s.onError(err)
	}
}
