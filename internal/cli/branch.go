package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bolasblack/svnscm/internal/scm"
)

var (
	branchMessage         string
	switchForce           bool
	updateIgnoreExternals bool
)

var branchCmd = &cobra.Command{
	Use:   "branch [name]",
	Short: "Show the current branch or create a new one",
	Long: `Without arguments, print the branch the working copy is on.

With a name, copy the current branch on the server and switch to the
copy. Names without a slash are created in the first directory of
layout.branches.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBranch,
}

var switchCmd = &cobra.Command{
	Use:   "switch <branch>",
	Short: "Switch the working copy to another branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runSwitch,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the working copy to HEAD",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

func init() {
	branchCmd.Flags().StringVarP(&branchMessage, "message", "m", "", "Log message for the copy")
	switchCmd.Flags().BoolVar(&switchForce, "force", false, "Switch even if the branch does not share history")
	updateCmd.Flags().BoolVar(&updateIgnoreExternals, "ignore-externals", false, "Do not update externals")
}

func runBranch(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		if len(args) == 0 {
			branch, err := repo.CurrentBranch(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), branch)
			return nil
		}

		if err := repo.NewBranch(ctx, args[0], branchMessage); err != nil {
			return err
		}
		progressDone(cmd.OutOrStdout(), "Switched to new branch %s\n", repo.Branch())
		return nil
	})
}

func runSwitch(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		if err := repo.SwitchBranch(ctx, args[0], switchForce); err != nil {
			return err
		}
		progressDone(cmd.OutOrStdout(), "Switched to %s\n", repo.Branch())
		return nil
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		summary, err := repo.UpdateRevision(ctx, updateIgnoreExternals)
		if err != nil {
			return err
		}
		progressDone(cmd.OutOrStdout(), "%s\n", summary)
		if n := repo.Conflicts().Len(); n > 0 {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d conflicted file(s), run 'svnscm resolve'\n", n)
		}
		return nil
	})
}
