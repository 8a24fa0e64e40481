// Package svn wraps the svn command line client: process execution,
// output decoding and parsing, path normalization and the per working
// copy command layer.
package svn

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/util"
)

// ExecOptions tunes a single svn invocation.
type ExecOptions struct {
	Username string
	Password string
	// Log controls whether the invocation is written to the debug log.
	Log bool
}

// ExecResult is the decoded output of a successful svn invocation.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Svn runs the svn binary through a CommandRunner.
type Svn struct {
	runner   util.CommandRunner
	path     string
	encoding string
	logger   *zap.Logger
}

// Option configures an Svn client.
type Option func(*Svn)

// WithPath sets the svn executable.
func WithPath(path string) Option {
	return func(s *Svn) {
		if path != "" {
			s.path = path
		}
	}
}

// WithEncoding sets the fallback charset used for non UTF-8 output.
func WithEncoding(label string) Option {
	return func(s *Svn) { s.encoding = label }
}

// WithLogger sets the logger used for command transcripts.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Svn) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an svn client.
func New(runner util.CommandRunner, opts ...Option) *Svn {
	s := &Svn{
		runner:   runner,
		path:     "svn",
		encoding: "windows-1252",
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the svn executable in use.
func (s *Svn) Path() string { return s.path }

// Exec runs svn in cwd. Non-zero exits are returned as *Error.
func (s *Svn) Exec(ctx context.Context, cwd string, args []string, opts ExecOptions) (ExecResult, error) {
	full := make([]string, 0, len(args)+5)
	full = append(full, args...)
	full = append(full, "--non-interactive")
	if opts.Username != "" {
		full = append(full, "--username", opts.Username)
	}
	if opts.Password != "" {
		full = append(full, "--password", opts.Password)
	}

	if opts.Log {
		s.logger.Debug("svn exec", zap.String("cwd", cwd), zap.Strings("args", redact(full)))
	}

	res, err := s.runner.Run(ctx, util.Command{
		Name: s.path,
		Args: full,
		Dir:  cwd,
		Env:  []string{"LC_ALL=en_US.UTF-8", "LANG=en_US.UTF-8"},
	})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrSvnNotFound, err)
		}
		return ExecResult{}, &Error{Args: args, ExitCode: res.ExitCode, Err: err}
	}

	out := ExecResult{
		ExitCode: res.ExitCode,
		Stdout:   decodeOutput(res.Stdout, s.encoding),
		Stderr:   decodeOutput(res.Stderr, s.encoding),
	}
	if out.ExitCode != 0 {
		svnErr := &Error{
			Args:     args,
			ExitCode: out.ExitCode,
			Code:     DetectErrorCode(out.Stderr),
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
		}
		s.logger.Debug("svn failed",
			zap.Strings("args", args),
			zap.Int("exit_code", out.ExitCode),
			zap.String("code", string(svnErr.Code)),
			zap.String("stderr", out.Stderr))
		return out, svnErr
	}
	return out, nil
}

var versionPattern = regexp.MustCompile(`version (\d+\.\d+\.\d+)`)

// Version probes the binary and returns its version string.
func (s *Svn) Version(ctx context.Context) (string, error) {
	res, err := s.Exec(ctx, "", []string{"--version"}, ExecOptions{})
	if err != nil {
		var svnErr *Error
		if errors.As(err, &svnErr) && svnErr.Err != nil {
			return "", fmt.Errorf("%w (%s)", ErrSvnNotFound, s.path)
		}
		return "", err
	}
	if m := versionPattern.FindStringSubmatch(res.Stdout); m != nil {
		return m[1], nil
	}
	return strings.TrimSpace(firstLine(res.Stdout)), nil
}

// Info runs `svn info --xml` on an arbitrary path or URL.
func (s *Svn) Info(ctx context.Context, cwd, target string, opts ExecOptions) (*Info, error) {
	res, err := s.Exec(ctx, cwd, []string{"info", "--xml", target}, opts)
	if err != nil {
		return nil, err
	}
	return ParseInfoXML(res.Stdout)
}

// redact hides the password argument from log output.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--password" {
			out[i+1] = "***"
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
