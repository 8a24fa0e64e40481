package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/statuscache"
)

var (
	statusRemote bool
	statusCached bool
	statusOutput string
	infoOutput   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the working copy status",
	Long: `Scan the working copy and show its changes grouped into Changes,
Conflicts, Unversioned, changelists and (with --remote) Remote Changes.

The result is also written to the status cache so that --cached can
show it again without running svn.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var infoCmd = &cobra.Command{
	Use:   "info [path]",
	Short: "Show svn info for a path",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfo,
}

func init() {
	statusCmd.Flags().BoolVar(&statusRemote, "remote", false, "Also check the server for incoming changes")
	statusCmd.Flags().BoolVar(&statusCached, "cached", false, "Show the last cached status without running svn")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", FormatText, "Output format (text, json, yaml)")

	infoCmd.Flags().StringVarP(&infoOutput, "output", "o", FormatText, "Output format (text, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := validateFormat(statusOutput); err != nil {
		return err
	}
	if statusCached {
		return runCachedStatus(cmd)
	}

	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		if statusRemote {
			if err := repo.StatusRemote(ctx); err != nil {
				return err
			}
		}

		snap := statuscache.FromRepository(repo, time.Now())
		if err := statuscache.Write(deps.Env.Fs, deps.Home, snap); err != nil {
			deps.Logger.Warn("failed to write status cache", zap.Error(err))
		}

		view := statusViewFromRepository(repo)
		return writeOutput(cmd.OutOrStdout(), statusOutput, view, func(w io.Writer) { renderStatus(w, view) })
	})
}

func runCachedStatus(cmd *cobra.Command) error {
	deps, err := newCLIDeps()
	if err != nil {
		return err
	}
	cwd, err := getCwd()
	if err != nil {
		return err
	}
	root, ok := scm.FindRoot(deps.Env.Fs, cwd)
	if !ok {
		return fmt.Errorf("%s", ErrMsgNoWorkingCopy)
	}

	snap, err := statuscache.Read(deps.Env.Fs, deps.Home, root)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf(ErrMsgNoCachedStatus, root)
	}

	view := statusViewFromSnapshot(snap)
	return writeOutput(cmd.OutOrStdout(), statusOutput, view, func(w io.Writer) { renderStatus(w, view) })
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := validateFormat(infoOutput); err != nil {
		return err
	}
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		target := cwd
		if len(args) == 1 {
			target = absPaths(cwd, args)[0]
		}
		info, err := repo.Info(ctx, target)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), infoOutput, info, func(w io.Writer) { renderInfo(w, info) })
	})
}
