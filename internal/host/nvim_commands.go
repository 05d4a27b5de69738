package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go-live-rst/internal/app"
	"go-live-rst/internal/config"
	"go-live-rst/internal/console"
	"go-live-rst/internal/contracts"
	"go-live-rst/internal/output"
	"go-live-rst/internal/preview"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
)

const logPrefix = "[go-live-rst]"

// channelSize bounds the lines kept for GoLiveRstLog.
const channelSize = 2000

// Commands is a state container for Neovim command handlers.
// It tracks the previewed buffers and delegates rendering to LivePreview.
type Commands struct {
	cfg     *config.Config
	logger  *slog.Logger
	channel *output.Channel
	preview *app.LivePreview

	mu sync.Mutex
	nv *nvim.Nvim

	lastCursorLine int
	lastCursorCol  int
}

// NewCommands loads the workspace config and wires the preview service.
func NewCommands(workspace string) (*Commands, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}

	logger := output.NewLogger(cfg.Log, os.Stderr)
	c := &Commands{
		cfg:     cfg,
		logger:  logger,
		channel: output.NewChannel(channelSize, logger),
	}
	c.preview = app.New(cfg, logger, c.channel, c.reportError)
	c.preview.SetGoToLineHandler(c.handleGoToLine)
	return c, nil
}

// Register registers Neovim command/function handlers.
func Register(p *plugin.Plugin) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	commands, err := NewCommands(cwd)
	if err != nil {
		return fmt.Errorf("%s %w", logPrefix, err)
	}

	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})

	p.HandleCommand(&plugin.CommandOptions{Name: "GoLiveRstStart"}, commands.Start)
	p.HandleCommand(&plugin.CommandOptions{Name: "GoLiveRstStop"}, commands.Stop)
	p.HandleCommand(&plugin.CommandOptions{Name: "GoLiveRstLog"}, commands.ShowLog)
	p.HandleCommand(&plugin.CommandOptions{Name: "GoLiveRstSource"}, commands.ShowSource)

	p.HandleFunction(&plugin.FunctionOptions{Name: "GoLiveRstInternalUpdate"}, commands.Update)
	p.HandleFunction(&plugin.FunctionOptions{Name: "GoLiveRstInternalCursor"}, commands.Cursor)
	p.HandleFunction(&plugin.FunctionOptions{Name: "GoLiveRstSpawnTerminal"}, commands.SpawnTerminal)

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "BufWritePost",
		Pattern: "*.rst,*.md",
		Eval:    "expand('<afile>:p')",
	}, commands.Saved)

	return nil
}

// Start opens a preview for the current buffer.
func (c *Commands) Start(v *nvim.Nvim) error {
	c.mu.Lock()
	c.nv = v
	c.lastCursorLine = 0
	c.lastCursorCol = 0
	c.mu.Unlock()

	doc, err := c.currentDocument(v)
	if err != nil {
		return err
	}
	if !c.preview.Supports(doc.Filetype) {
		return fmt.Errorf("%s no preview for filetype %q", logPrefix, doc.Filetype)
	}

	if _, err := c.preview.Open(context.Background(), doc); err != nil {
		c.reportError(err)
	}

	if err := c.publishCursor(v); err != nil {
		return err
	}

	return v.Command(fmt.Sprintf(`echom "%s preview: %s"`, logPrefix, c.preview.URL()))
}

// Stop closes every preview and shuts the server down.
func (c *Commands) Stop(v *nvim.Nvim) error {
	c.mu.Lock()
	c.nv = nil
	c.mu.Unlock()

	if err := c.preview.Stop(); err != nil {
		return err
	}
	return v.Command(fmt.Sprintf(`echom "%s preview stopped"`, logPrefix))
}

// ShowLog opens a scratch buffer holding the builder output channel.
func (c *Commands) ShowLog(v *nvim.Nvim) error {
	return c.scratch(v, "go-live-rst://log", "", c.channel.Lines())
}

// ShowSource opens a scratch buffer with the HTML rendered for the current buffer.
func (c *Commands) ShowSource(v *nvim.Nvim) error {
	doc, err := c.currentDocument(v)
	if err != nil {
		return err
	}
	html, err := c.preview.Render(context.Background(), doc)
	if err != nil {
		c.reportError(err)
		return nil
	}
	return c.scratch(v, "go-live-rst://source", "html", strings.Split(html, "\n"))
}

// Update is called on text changes for previewed buffers.
func (c *Commands) Update(v *nvim.Nvim) error {
	if !c.cfg.LiveUpdates() {
		return nil
	}
	doc, err := c.currentDocument(v)
	if err != nil {
		return err
	}
	c.preview.Update(doc)
	return nil
}

// Saved refreshes the preview of a buffer written to disk.
func (c *Commands) Saved(v *nvim.Nvim, path string) error {
	doc, err := c.currentDocument(v)
	if err != nil {
		return err
	}
	if doc.Path != path {
		return nil
	}
	c.preview.Update(doc)
	return nil
}

func (c *Commands) Cursor(v *nvim.Nvim) error {
	if len(c.preview.Views()) == 0 {
		return nil
	}
	return c.publishCursor(v)
}

// SpawnTerminal opens a terminal emulator and returns its tty path.
func (c *Commands) SpawnTerminal(v *nvim.Nvim) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.TerminalTimeout())
	defer cancel()

	tty, err := console.SpawnTerminal(ctx, console.Options{Emulator: c.cfg.Emulator()})
	if err != nil {
		c.reportError(err)
		return "", err
	}
	c.logger.Info("terminal ready", "tty", tty)
	return tty, nil
}

func (c *Commands) currentDocument(v *nvim.Nvim) (preview.Document, error) {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return preview.Document{}, err
	}

	lines, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return preview.Document{}, err
	}

	path, err := v.BufferName(buf)
	if err != nil {
		return preview.Document{}, err
	}

	var ft string
	if err := v.Eval("&filetype", &ft); err != nil {
		return preview.Document{}, err
	}

	return preview.Document{
		Path:     path,
		Filetype: ft,
		Source:   bytes.Join(lines, []byte("\n")),
	}, nil
}

func (c *Commands) scratch(v *nvim.Nvim, name string, filetype string, lines []string) error {
	if err := v.Command("new"); err != nil {
		return err
	}
	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	if err := v.Command("setlocal buftype=nofile bufhidden=wipe noswapfile"); err != nil {
		return err
	}
	if filetype != "" {
		if err := v.Command("setlocal filetype=" + filetype); err != nil {
			return err
		}
	}
	// A second :new on the same name fails; the name is cosmetic.
	_ = v.SetBufferName(buf, name)

	raw := make([][]byte, len(lines))
	for i, l := range lines {
		raw[i] = []byte(l)
	}
	return v.SetBufferLines(buf, 0, -1, true, raw)
}

func (c *Commands) publishCursor(v *nvim.Nvim) error {
	var line int
	if err := v.Eval(`line(".")`, &line); err != nil {
		return err
	}

	var col int
	if err := v.Eval(`col(".")`, &col); err != nil {
		return err
	}

	c.mu.Lock()
	if line == c.lastCursorLine && col == c.lastCursorCol {
		c.mu.Unlock()
		return nil
	}
	c.lastCursorLine = line
	c.lastCursorCol = col
	c.mu.Unlock()

	return c.preview.PublishCursor(line, col)
}

func (c *Commands) handleGoToLine(msg contracts.GoToLineMessage) {
	c.mu.Lock()
	v := c.nv
	if v == nil || msg.Line == c.lastCursorLine {
		c.mu.Unlock()
		return
	}
	c.lastCursorLine = msg.Line
	c.lastCursorCol = 0
	c.mu.Unlock()

	win, err := v.CurrentWindow()
	if err != nil {
		return
	}
	if err := v.SetWindowCursor(win, [2]int{msg.Line, 0}); err != nil {
		return
	}

	_ = v.Command("normal! zz")
}

// reportError logs err and echoes it in Neovim when a client is attached.
func (c *Commands) reportError(err error) {
	c.logger.Error("preview error", "err", err)

	c.mu.Lock()
	v := c.nv
	c.mu.Unlock()
	if v == nil {
		return
	}

	msg := err.Error()
	if errors.Is(err, console.ErrTerminalTimeout) {
		msg = "terminal emulator " + c.cfg.Emulator() + " did not start"
	}
	first, _, _ := strings.Cut(msg, "\n")
	_ = v.WriteErr(fmt.Sprintf("%s %s (see :GoLiveRstLog)\n", logPrefix, first))
}
