package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/statuscache"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the status current while files change",
	Long: `Open every working copy under the current directory, watch it for
file changes and poll the server for incoming changes every
remote_changes_check_frequency seconds. The status is printed and
cached whenever it changes. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	deps, err := newCLIDeps()
	if err != nil {
		return err
	}
	cwd, err := getCwd()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := newManager(deps, nil, true)
	defer mgr.CloseAll()

	repos, err := mgr.Open(ctx, cwd)
	if err != nil {
		if errors.Is(err, scm.ErrNoWorkingCopy) {
			return errors.New(ErrMsgNoWorkingCopy)
		}
		return err
	}

	w := &statusPrinter{out: cmd.OutOrStdout(), deps: deps}
	for _, repo := range repos {
		cleanup := w.follow(ctx, repo)
		defer cleanup()
	}

	<-ctx.Done()
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Stopped watching.")
	return nil
}

// statusPrinter prints and caches the status of followed repositories.
type statusPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	deps *cliDeps
}

// follow prints repo now and after every status change. The returned
// function stops following.
func (p *statusPrinter) follow(ctx context.Context, repo *scm.Repository) func() {
	unsubStatus := repo.OnDidChangeStatus(func() { p.print(repo) })
	unsubRemote := repo.OnDidChangeRemoteChangedFiles(func() {
		group, _ := repo.RemoteChanges()
		p.deps.Logger.Info("remote changes", zap.String("root", repo.Root()), zap.Int("count", group.Len()))
	})

	stopRefresh := func() {}
	if !repo.Config().Autorefresh {
		stopPeriodic := statuscache.StartPeriodicRefresh(ctx, p.deps.Env.Fs, p.deps.Home, repo, p.deps.Logger)
		stopRefresh = func() { stopPeriodic() }
	}

	p.print(repo)
	return func() {
		stopRefresh()
		unsubRemote()
		unsubStatus()
	}
}

func (p *statusPrinter) print(repo *scm.Repository) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := statuscache.FromRepository(repo, time.Now())
	if err := statuscache.Write(p.deps.Env.Fs, p.deps.Home, snap); err != nil {
		p.deps.Logger.Warn("failed to write status cache", zap.Error(err))
	}

	_, _ = fmt.Fprintf(p.out, "\n[%s]\n", snap.UpdatedAt.Format("15:04:05"))
	renderStatus(p.out, statusViewFromRepository(repo))
}
