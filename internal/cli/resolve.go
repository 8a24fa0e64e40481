package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bolasblack/svnscm/internal/scm"
)

var resolveAccept string

var resolveCmd = &cobra.Command{
	Use:   "resolve [path]...",
	Short: "Mark conflicts as resolved",
	Long: `Resolve conflicted files with the chosen action. Without paths every
file in the Conflicts group is resolved. Without --accept a picker asks
for the action.`,
	RunE: runResolve,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Release stale working copy locks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
			if err := repo.Cleanup(ctx); err != nil {
				return err
			}
			progressDone(cmd.OutOrStdout(), "Cleaned up %s\n", repo.Root())
			return nil
		})
	},
}

var finishCheckoutCmd = &cobra.Command{
	Use:   "finish-checkout",
	Short: "Complete an interrupted or sparse checkout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
			if err := repo.FinishCheckout(ctx); err != nil {
				return err
			}
			progressDone(cmd.OutOrStdout(), "Checkout of %s complete\n", repo.Root())
			return nil
		})
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAccept, "accept", "", "Resolve action (base, working, mine-conflict, theirs-conflict, mine-full, theirs-full)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		files := absPaths(cwd, args)
		if len(files) == 0 {
			files = appendPaths(nil, repo.Conflicts())
		}
		if len(files) == 0 {
			return errors.New("no conflicts to resolve")
		}

		action := resolveAccept
		if action == "" {
			var err error
			if action, err = promptResolveAction(); err != nil {
				return err
			}
		}

		if err := repo.Resolve(ctx, files, action); err != nil {
			return err
		}
		progressDone(cmd.OutOrStdout(), "Resolved %d file(s) using %s\n", len(files), action)
		return nil
	})
}
