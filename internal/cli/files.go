package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bolasblack/svnscm/internal/scm"
)

var (
	removeKeepLocal bool
	revertDepth     string
	ignoreDir       string
	ignoreRecursive bool
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Schedule files for addition",
	Args:  cobra.MinimumNArgs(1),
	RunE: filesCommand(func(ctx context.Context, repo *scm.Repository, files []string) error {
		return repo.AddFiles(ctx, files)
	}),
}

var removeCmd = &cobra.Command{
	Use:   "remove <path>...",
	Short: "Schedule files for deletion",
	Args:  cobra.MinimumNArgs(1),
	RunE: filesCommand(func(ctx context.Context, repo *scm.Repository, files []string) error {
		return repo.RemoveFiles(ctx, files, removeKeepLocal)
	}),
}

var revertCmd = &cobra.Command{
	Use:   "revert <path>...",
	Short: "Discard local changes",
	Args:  cobra.MinimumNArgs(1),
	RunE: filesCommand(func(ctx context.Context, repo *scm.Repository, files []string) error {
		return repo.Revert(ctx, files, revertDepth)
	}),
}

var renameCmd = &cobra.Command{
	Use:   "rename <from> <to>",
	Short: "Move a versioned file",
	Args:  cobra.ExactArgs(2),
	RunE: filesCommand(func(ctx context.Context, repo *scm.Repository, files []string) error {
		return repo.Rename(ctx, files[0], files[1])
	}),
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore <pattern>...",
	Short: "Add patterns to svn:ignore",
	Long: `Add glob patterns to the svn:ignore property of a directory
(the current directory unless --in is given). Existing patterns are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIgnore,
}

var changelistCmd = &cobra.Command{
	Use:   "changelist",
	Short: "Manage changelists",
}

var changelistAddCmd = &cobra.Command{
	Use:   "add <name> <path>...",
	Short: "Move files to a changelist",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
			return repo.AddChangelist(ctx, absPaths(cwd, args[1:]), name)
		})
	},
}

var changelistRemoveCmd = &cobra.Command{
	Use:   "remove <path>...",
	Short: "Take files out of their changelist",
	Args:  cobra.MinimumNArgs(1),
	RunE: filesCommand(func(ctx context.Context, repo *scm.Repository, files []string) error {
		return repo.RemoveChangelist(ctx, files)
	}),
}

func init() {
	removeCmd.Flags().BoolVar(&removeKeepLocal, "keep-local", false, "Keep the files on disk")
	revertCmd.Flags().StringVar(&revertDepth, "depth", "empty", "Revert depth (empty, files, immediates, infinity)")
	ignoreCmd.Flags().StringVar(&ignoreDir, "in", "", "Directory whose svn:ignore is changed")
	ignoreCmd.Flags().BoolVarP(&ignoreRecursive, "recursive", "R", false, "Set the property on all subdirectories")

	changelistCmd.AddCommand(changelistAddCmd)
	changelistCmd.AddCommand(changelistRemoveCmd)
}

// filesCommand adapts an operation on absolute paths to a cobra RunE.
func filesCommand(fn func(ctx context.Context, repo *scm.Repository, files []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
			return fn(ctx, repo, absPaths(cwd, args))
		})
	}
}

func runIgnore(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		dir := cwd
		if ignoreDir != "" {
			dir = absPaths(cwd, []string{ignoreDir})[0]
		}
		return repo.AddToIgnore(ctx, args, filepath.Clean(dir), ignoreRecursive)
	})
}
