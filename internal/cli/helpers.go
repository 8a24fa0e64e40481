package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	applog "github.com/bolasblack/svnscm/internal/log"
	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/svn"
	"github.com/bolasblack/svnscm/internal/util"
)

// Common error messages for CLI commands.
const (
	ErrMsgNoWorkingCopy  = "not inside an svn working copy (or any of its parents)"
	ErrMsgNoCachedStatus = "no cached status for %s: run 'svnscm status' first"
	ErrMsgNothingToDo    = "nothing to commit"
)

// cliDeps holds what commands need from the outside world.
type cliDeps struct {
	Env    *util.Env
	Home   string
	Logger *zap.Logger
	Prompt scm.PromptFunc
}

// newCLIDeps builds the production dependencies. Tests replace it.
var newCLIDeps = func() (*cliDeps, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &cliDeps{
		Env:    util.NewOsEnv(),
		Home:   home,
		Logger: applog.L(),
		Prompt: huhCredentialPrompt,
	}, nil
}

// getCwd returns the directory the command acts on.
func getCwd() (string, error) {
	if workDir != "" {
		return filepath.Abs(workDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// newManager creates a manager writing progress to w (unless --quiet).
func newManager(deps *cliDeps, w io.Writer, watch bool) *scm.Manager {
	opts := scm.ManagerOptions{
		Env:    deps.Env,
		Logger: deps.Logger,
		Prompt: deps.Prompt,
		Watch:  watch,
	}
	if !quiet && w != nil {
		opts.Progress = &progressReporter{w: w}
	}
	return scm.NewManager(opts)
}

// openRepository opens the working copy containing dir. The caller must
// call the returned close function.
func openRepository(ctx context.Context, deps *cliDeps, w io.Writer, dir string) (*scm.Repository, func(), error) {
	mgr := newManager(deps, w, false)
	if _, err := mgr.Open(ctx, dir); err != nil {
		mgr.CloseAll()
		if errors.Is(err, scm.ErrNoWorkingCopy) {
			return nil, nil, errors.New(ErrMsgNoWorkingCopy)
		}
		return nil, nil, err
	}

	repo, ok := mgr.RepositoryFor(dir)
	if !ok {
		repos := mgr.Repositories()
		if len(repos) == 0 {
			mgr.CloseAll()
			return nil, nil, errors.New(ErrMsgNoWorkingCopy)
		}
		repo = repos[0]
	}
	return repo, mgr.CloseAll, nil
}

// repoFunc is the body of a command acting on one working copy.
type repoFunc func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error

// withRepository resolves the working directory, opens its repository,
// runs fn and closes everything afterwards.
func withRepository(ctx context.Context, w io.Writer, fn repoFunc) error {
	deps, err := newCLIDeps()
	if err != nil {
		return err
	}
	cwd, err := getCwd()
	if err != nil {
		return err
	}
	repo, closeFn, err := openRepository(ctx, deps, w, cwd)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, deps, repo, cwd)
}

// absPaths resolves command-line paths against cwd.
func absPaths(cwd string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			out = append(out, filepath.Clean(p))
			continue
		}
		out = append(out, filepath.Join(cwd, p))
	}
	return out
}

// formatError renders err for the terminal. svn failures show the
// formatted stderr only; the raw output is in the debug log.
func formatError(err error) string {
	var svnErr *svn.Error
	if errors.As(err, &svnErr) {
		if msg := strings.TrimSpace(svnErr.FormattedStderr()); msg != "" {
			return "Error: " + msg
		}
	}
	if errors.Is(err, svn.ErrSvnNotFound) {
		return "Error: svn executable not found, install Subversion or set svn_path in " + util.ConfigFilename
	}
	return "Error: " + err.Error()
}

// progressReporter prints the operations that take a while.
type progressReporter struct {
	w io.Writer
}

var _ scm.ProgressReporter = (*progressReporter)(nil)

func (p *progressReporter) Begin(op scm.Operation) func() {
	util.ProgressStep(p.w, "%s...\n", op)
	return func() {}
}

// progressDone writes a progress message with ✓ prefix (step completed).
// Delegates to util.ProgressDone for shared implementation.
var progressDone = util.ProgressDone
