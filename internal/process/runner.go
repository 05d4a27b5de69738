package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// fatalMarker flags a failed build on windows, where the builder's exit code
// cannot be trusted.
// TODO: revisit if the marker shows up in non-fatal warnings.
const fatalMarker = "Exception occurred:"

// Runner executes one external program per Run call. The zero value uses
// os/exec and discards log lines.
type Runner struct {
	Spawner Spawner
	Log     LogSink
	Env     map[string]string // applied over the inherited environment, before Invocation.Env

	goos string // overrides runtime.GOOS in tests
}

// Run starts inv, collects its output, and waits for it to exit.
// It returns an *Error for every failure.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	sp := r.spawner()
	log := r.sink()

	if inv.Executable == "" {
		return nil, &Error{
			Message: "no executable configured",
			Kind:    KindExecutableNotFound,
			Err:     ErrExecutableNotFound,
		}
	}
	path, err := sp.LookPath(inv.Executable)
	if err != nil {
		return nil, &Error{
			Message: fmt.Sprintf("%s could not be found in the system", inv.Executable),
			Command: inv.Executable,
			Kind:    KindExecutableNotFound,
			Err:     fmt.Errorf("%w: %w", ErrExecutableNotFound, err),
		}
	}

	if !inv.Silent {
		log.AppendLine(strings.TrimSpace(inv.Executable + " " + strings.Join(inv.Args, " ")))
	}

	proc, err := sp.Spawn(ctx, Spec{
		Path:  path,
		Args:  inv.Args,
		Dir:   inv.Dir,
		Env:   mergeEnv(os.Environ(), r.Env, inv.Env),
		Stdin: inv.Input != nil,
	})
	if err != nil {
		return nil, &Error{
			Message:  fmt.Sprintf("failed to start %s", inv.Executable),
			Command:  inv.Executable,
			ExitCode: -1,
			Err:      err,
		}
	}

	stdout, stderr, err := collect(proc, inv.Input)
	code, waitErr := proc.Wait()
	if err == nil {
		err = waitErr
	}

	res := &Result{
		RunID:    uuid.New().String(),
		ExitCode: code,
		Stdout:   decode(stdout, lookupEncoding(inv.Encoding)),
		Stderr:   string(stderr),
	}

	if !inv.Silent && res.Stderr != "" {
		log.AppendLine(res.Stderr)
	}

	if err != nil {
		return nil, &Error{
			Message:  fmt.Sprintf("failed to run %s", inv.Executable),
			Command:  inv.Executable,
			ExitCode: code,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	if res.ExitCode != 0 || r.fatalOnPlatform(res.Stderr) {
		return nil, &Error{
			Message:  fmt.Sprintf("Failed to execute %s", inv.Executable),
			Command:  inv.Executable,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Kind:     Classify(res.Stderr),
		}
	}
	return res, nil
}

// collect feeds input and drains both output streams concurrently. It returns
// once both streams are closed.
func collect(proc Process, input []byte) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	var g errgroup.Group

	if w := proc.Stdin(); w != nil {
		g.Go(func() error {
			// The child may exit without reading its input.
			_, _ = w.Write(input)
			_ = w.Close()
			return nil
		})
	}
	g.Go(func() error {
		_, err := io.Copy(&stdout, proc.Stdout())
		if err != nil {
			return fmt.Errorf("reading stdout: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, proc.Stderr())
		if err != nil {
			return fmt.Errorf("reading stderr: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (r *Runner) fatalOnPlatform(stderr string) bool {
	goos := r.goos
	if goos == "" {
		goos = runtime.GOOS
	}
	return goos == "windows" && strings.Contains(stderr, fatalMarker)
}

func (r *Runner) spawner() Spawner {
	if r.Spawner == nil {
		return ExecSpawner{}
	}
	return r.Spawner
}

func (r *Runner) sink() LogSink {
	if r.Log == nil {
		return discardSink{}
	}
	return r.Log
}
