package build

import (
	"context"
	"fmt"
	"path/filepath"

	"go-live-rst/internal/config"
	"go-live-rst/internal/process"
)

// Docutils renders a single buffer with a docutils front-end, feeding the
// unsaved source on stdin.
type Docutils struct {
	Runner     *process.Runner
	Executable string
	Args       []string
	Encoding   string
}

// NewDocutils configures a Docutils provider from cfg.
func NewDocutils(cfg *config.Config, runner *process.Runner) *Docutils {
	return &Docutils{
		Runner:     runner,
		Executable: cfg.DocutilsCommand(),
		Args:       cfg.Docutils.Args,
		Encoding:   cfg.OutputEncoding(),
	}
}

func (d *Docutils) Name() string { return config.ProviderDocutils }

// Render converts source. path is used for the working directory, so that
// include directives resolve, and as the base of relative links.
func (d *Docutils) Render(ctx context.Context, path string, source []byte) (string, error) {
	if source == nil {
		source = []byte{}
	}
	res, err := d.Runner.Run(ctx, process.Invocation{
		Executable: d.Executable,
		Args:       append([]string{"--input-encoding=utf-8"}, d.Args...),
		Dir:        filepath.Dir(path),
		Input:      source,
		Encoding:   d.Encoding,
	})
	if err != nil {
		return "", fmt.Errorf("docutils: %w", err)
	}
	return FixLinks(Fragment(res.Stdout), path), nil
}
