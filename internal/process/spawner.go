package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Spec is what a Spawner needs to start one child process.
type Spec struct {
	Path  string
	Args  []string
	Dir   string
	Env   []string // KEY=VALUE, complete environment
	Stdin bool     // connect a stdin pipe
}

// Process is a started child.
type Process interface {
	// Stdin is nil unless Spec.Stdin was set.
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait must only be called once both output streams reach EOF.
	// A non-zero exit is reported through the code, not the error.
	Wait() (int, error)
}

// Spawner starts processes.
type Spawner interface {
	LookPath(name string) (string, error)
	Spawn(ctx context.Context, spec Spec) (Process, error)
}

// ExecSpawner starts processes with os/exec.
type ExecSpawner struct{}

func (ExecSpawner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (ExecSpawner) Spawn(ctx context.Context, spec Spec) (Process, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	p := &execProcess{cmd: cmd}

	var err error
	if spec.Stdin {
		if p.stdin, err = cmd.StdinPipe(); err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}
	if p.stdout, err = cmd.StdoutPipe(); err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if p.stderr, err = cmd.StderrPipe(); err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() io.Reader     { return p.stderr }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when the process was killed by a signal.
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
