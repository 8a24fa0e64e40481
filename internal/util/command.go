package util

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external process invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string    // working directory, empty for the current one
	Env   []string  // extra KEY=VALUE pairs appended to os.Environ()
	Stdin io.Reader // optional
}

// Key returns the "name arg1 arg2 ..." form used for logging and mocks.
func (c Command) Key() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds what a finished process produced.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// CommandRunner executes external commands.
// Run returns a non-nil error only when the process could not be started
// or was interrupted by ctx. A non-zero exit is reported via Result.ExitCode.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// DefaultCommandRunner implements CommandRunner with os/exec.
type DefaultCommandRunner struct{}

// NewCommandRunner creates a new DefaultCommandRunner.
func NewCommandRunner() *DefaultCommandRunner {
	return &DefaultCommandRunner{}
}

func (r *DefaultCommandRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:fslint // CommandRunner is the abstraction layer
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}
