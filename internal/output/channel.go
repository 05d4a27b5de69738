// Package output holds the plugin's user-visible log and its slog setup.
package output

import (
	"log/slog"
	"strings"
	"sync"
)

// Channel is an append-only, order-preserving log shown to the user on request.
type Channel struct {
	mu     sync.Mutex
	lines  []string
	max    int
	logger *slog.Logger
}

// NewChannel returns a Channel that keeps at most max lines (0 = unbounded)
// and mirrors every line to logger when it is non-nil.
func NewChannel(max int, logger *slog.Logger) *Channel {
	return &Channel{max: max, logger: logger}
}

// AppendLine appends text, one entry per line. Trailing newlines are dropped.
func (c *Channel) AppendLine(text string) {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return
	}
	parts := strings.Split(text, "\n")

	c.mu.Lock()
	c.lines = append(c.lines, parts...)
	if c.max > 0 && len(c.lines) > c.max {
		c.lines = append(c.lines[:0], c.lines[len(c.lines)-c.max:]...)
	}
	c.mu.Unlock()

	if c.logger != nil {
		for _, p := range parts {
			c.logger.Debug(p, "component", "output")
		}
	}
}

// Lines returns a copy of the log.
func (c *Channel) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of buffered lines.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}
