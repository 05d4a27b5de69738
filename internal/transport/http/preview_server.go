// Package httpserver handles all message traffic between Neovim and the browser.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go-live-rst/internal/contracts"

	"github.com/gorilla/websocket"
)

// Update is one rendered preview to publish.
type Update struct {
	HTML     string
	Path     string
	Provider string
	Failed   bool
}

// PreviewServer coordinates HTTP serving and WebSocket updates.
type PreviewServer struct {
	addr   string
	shell  string
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	server   *http.Server
	stopLoop chan struct{}
	loopDone chan struct{}

	goToLine       func(contracts.GoToLineMessage)
	browserInbound chan []byte

	updates    chan Update
	cursors    chan contracts.CursorMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	upgrader websocket.Upgrader
}

// NewPreviewServer creates an HTTP/WebSocket preview server bound to addr.
func NewPreviewServer(addr string, shell string, logger *slog.Logger) *PreviewServer {
	return &PreviewServer{
		addr:   addr,
		shell:  shell,
		logger: logger,

		browserInbound: make(chan []byte, 64),
		updates:        make(chan Update, 8),
		cursors:        make(chan contracts.CursorMessage, 32),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// URL returns the browser URL for the preview server.
func (m *PreviewServer) URL() string {
	return "http://" + m.addr
}

// Handler returns the routes served to the browser.
func (m *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleIndex)
	mux.HandleFunc("/ws", m.handleWS)
	mux.HandleFunc(contracts.AssetPrefix, m.handleAsset)
	return mux
}

// Start binds the listener and starts the run loop. It is a no-op when the
// server is already running.
func (m *PreviewServer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}
	m.addr = ln.Addr().String()
	m.server = &http.Server{Addr: m.addr, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second}
	m.stopLoop = make(chan struct{})
	m.loopDone = make(chan struct{})
	m.started = true

	go m.runLoop(m.stopLoop, m.loopDone)
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("preview server stopped", "err", err)
		}
	}(m.server)

	m.logger.Info("preview server listening", "url", "http://"+m.addr)
	return nil
}

// StartOrUpdate starts the preview server on first call and publishes new HTML.
func (m *PreviewServer) StartOrUpdate(u Update) error {
	if err := m.Start(); err != nil {
		return err
	}
	m.updates <- u
	return nil
}

// UpdateCursor publishes a cursor update to connected browsers.
func (m *PreviewServer) UpdateCursor(msg contracts.CursorMessage) error {
	if !m.Running() {
		return nil
	}

	msg.Type = contracts.MessageTypeCursor
	m.cursors <- msg
	return nil
}

func (m *PreviewServer) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Stop gracefully shuts down the HTTP server and run loop.
func (m *PreviewServer) Stop() error {
	m.mu.Lock()
	if !m.started || m.server == nil {
		m.mu.Unlock()
		return nil
	}
	srv, stop, done := m.server, m.stopLoop, m.loopDone
	m.started = false
	m.server = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := srv.Shutdown(ctx)
	close(stop)
	<-done
	return err
}

// SetGoToLineHandler registers the callback for browser go-to-line requests.
func (m *PreviewServer) SetGoToLineHandler(fn func(contracts.GoToLineMessage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goToLine = fn
}

func (m *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(m.shell))
}

// handleWS upgrades the connection and forwards browser messages to the loop.
func (m *PreviewServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.mu.Lock()
	stop := m.stopLoop
	m.mu.Unlock()

	select {
	case m.register <- conn:
	case <-stop:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case m.unregister <- conn:
		case <-stop:
		}
	}()

	// Block here until the connection closes or errors out.
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		m.browserInbound <- msg
	}
}

// handleAsset serves local files referenced by a preview via encoded absolute paths.
func (m *PreviewServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, contracts.AssetPrefix)
	assetPath, ok := contracts.AssetPath(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(assetPath)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, assetPath)
}

// runLoop serializes state updates and websocket writes on a single goroutine.
func (m *PreviewServer) runLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	var conn *websocket.Conn

	lastRender := contracts.RenderMessage{Type: contracts.MessageTypeRender}
	lastCursor := contracts.CursorMessage{Type: contracts.MessageTypeCursor}
	haveCursor := false

	for {
		select {
		case update := <-m.updates:
			lastRender.Rev++
			lastRender.HTML = update.HTML
			lastRender.Filename = filepath.Base(update.Path)
			lastRender.Provider = update.Provider
			lastRender.Failed = update.Failed

			if conn == nil {
				continue
			}

			if !writeJSON(conn, lastRender) {
				conn = nil
				continue
			}

			if haveCursor {
				lastCursor.Rev = lastRender.Rev
				if !writeJSON(conn, lastCursor) {
					conn = nil
				}
			}

		case cursor := <-m.cursors:
			lastCursor = cursor
			haveCursor = true

			if conn == nil || lastRender.Rev == 0 {
				continue
			}

			lastCursor.Rev = lastRender.Rev
			if !writeJSON(conn, lastCursor) {
				conn = nil
			}

		case c := <-m.register:
			if conn != nil {
				_ = conn.Close()
			}
			conn = c

			if !writeJSON(conn, lastRender) {
				conn = nil
				continue
			}

			if haveCursor && lastRender.Rev > 0 {
				lastCursor.Rev = lastRender.Rev
				if !writeJSON(conn, lastCursor) {
					conn = nil
				}
			}

		case c := <-m.unregister:
			if conn == c {
				_ = conn.Close()
				conn = nil
			}

		case raw := <-m.browserInbound:
			m.dispatch(raw)

		case <-stop:
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
	}
}

func (m *PreviewServer) dispatch(raw []byte) {
	var envelope contracts.IncomingMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		m.logger.Debug("dropping malformed browser message", "err", err)
		return
	}
	switch envelope.Type {
	case contracts.MessageTypeGoToLine:
		var msg contracts.GoToLineMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		m.mu.Lock()
		fn := m.goToLine
		m.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	}
}

// writeJSON writes a JSON message and reports whether the connection is usable.
func writeJSON(conn *websocket.Conn, v any) bool {
	if err := conn.WriteJSON(v); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}
