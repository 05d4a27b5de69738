// Package console opens a terminal emulator for a debugged program and
// reports the tty it is attached to.
package console

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrTerminalTimeout is returned when the emulator never reports its tty.
var ErrTerminalTimeout = errors.New("terminal did not report its tty")

const (
	defaultEmulator = "x-terminal-emulator"
	defaultInterval = 10 * time.Millisecond
	defaultAttempts = 500
)

// Options controls SpawnTerminal. Zero values select the defaults.
type Options struct {
	Emulator string        // default x-terminal-emulator
	TempDir  string        // where the tty file is written (default os.TempDir)
	Interval time.Duration // poll interval (default 10ms)
	Attempts int           // polls before giving up (default 500)
}

// SpawnTerminal starts a terminal emulator that writes its tty path to a
// temporary file and then sleeps, and returns that path.
func SpawnTerminal(ctx context.Context, opts Options) (string, error) {
	emulator := opts.Emulator
	if emulator == "" {
		emulator = defaultEmulator
	}
	dir := opts.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	ttyFile := filepath.Join(dir, "go-live-rst-tty-"+strconv.FormatUint(rand.Uint64(), 36))
	script := fmt.Sprintf("sh -c \"tty > %s && sleep 4294967294\"", ttyFile)

	cmd := exec.Command(emulator, "-e", script)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting %s: %w", emulator, err)
	}
	// The emulator outlives this call; reap it in the background.
	go func() { _ = cmd.Wait() }()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range attempts {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %w", ErrTerminalTimeout, ctx.Err())
			}
			return "", ctx.Err()
		case <-ticker.C:
		}

		tty, ok := readTTY(ttyFile)
		if ok {
			_ = os.Remove(ttyFile)
			return tty, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrTerminalTimeout, attempts)
}

// readTTY reports the tty path once the file holds a complete line.
func readTTY(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil || !strings.HasSuffix(string(data), "\n") {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
