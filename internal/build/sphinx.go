package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go-live-rst/internal/config"
	"go-live-rst/internal/process"
)

// Sphinx builds the whole project to HTML and reads back the page for one
// source file. It works from the saved file on disk. Builds share one output
// directory, so Render calls run one at a time.
type Sphinx struct {
	Runner     *process.Runner
	Log        process.LogSink
	Executable string
	Args       []string // leading arguments, e.g. -msphinx
	ConfPath   string   // source directory containing conf.py
	BuiltPath  string   // HTML output directory
	Encoding   string

	mu sync.Mutex
}

// NewSphinx configures a Sphinx provider from cfg.
func NewSphinx(cfg *config.Config, runner *process.Runner, log process.LogSink) *Sphinx {
	exe, args := cfg.SphinxCommand()
	return &Sphinx{
		Runner:     runner,
		Log:        log,
		Executable: exe,
		Args:       args,
		ConfPath:   cfg.ConfPath(),
		BuiltPath:  cfg.BuiltPath(),
		Encoding:   cfg.OutputEncoding(),
	}
}

func (s *Sphinx) Name() string { return config.ProviderSphinx }

// Render runs the build and returns the preview fragment for path.
func (s *Sphinx) Render(ctx context.Context, path string, _ []byte) (string, error) {
	page, err := s.HTMLPath(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	args := append(append([]string{}, s.Args...), "-b", "html", ".", s.BuiltPath)
	s.logf("Source file: %s", path)
	s.logf("Compiler: %s %s", s.Executable, strings.Join(args, " "))
	s.logf("HTML file: %s", page)

	_, err = s.Runner.Run(ctx, process.Invocation{
		Executable: s.Executable,
		Args:       args,
		Dir:        s.ConfPath,
		Encoding:   s.Encoding,
	})
	if err != nil {
		return "", fmt.Errorf("sphinx build: %w", err)
	}

	data, err := os.ReadFile(page)
	if err != nil {
		return "", fmt.Errorf("reading built page: %w", err)
	}
	return FixLinks(Fragment(string(data)), page), nil
}

// HTMLPath maps a source file to the page Sphinx writes for it.
func (s *Sphinx) HTMLPath(source string) (string, error) {
	rel, err := filepath.Rel(s.ConfPath, source)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", source, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q is outside the documentation source %q", source, s.ConfPath)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".html"
	return filepath.Join(s.BuiltPath, rel), nil
}

func (s *Sphinx) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.AppendLine(fmt.Sprintf(format, args...))
	}
}
