package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bolasblack/svnscm/internal/scm"
)

var (
	commitMessage    string
	commitChangelist string
	patchChangelist  string
)

var commitCmd = &cobra.Command{
	Use:   "commit [path]...",
	Short: "Commit changes to the repository",
	Long: `Commit the given paths. Without paths, commit everything in Changes
and in every changelist not listed in ignore_on_commit.

Without -m the message is asked for interactively.`,
	RunE: runCommit,
}

var patchCmd = &cobra.Command{
	Use:   "patch [path]...",
	Short: "Print a unified diff of local changes",
	RunE:  runPatch,
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message")
	commitCmd.Flags().StringVar(&commitChangelist, "changelist", "", "Commit only this changelist")
	patchCmd.Flags().StringVar(&patchChangelist, "changelist", "", "Diff only this changelist")
}

func runCommit(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		files := absPaths(cwd, args)
		if len(files) == 0 {
			files = commitCandidates(repo, commitChangelist)
		}
		if len(files) == 0 {
			return errors.New(ErrMsgNothingToDo)
		}

		msg := commitMessage
		if msg == "" {
			var err error
			if msg, err = promptCommitMessage(); err != nil {
				return err
			}
		}

		result, err := repo.Commit(ctx, msg, files)
		if err != nil {
			return err
		}
		progressDone(cmd.OutOrStdout(), "%s\n", result)
		return nil
	})
}

// commitCandidates lists the files a bare `commit` sends: one changelist
// when named, otherwise Changes plus the changelists not ignored on commit.
func commitCandidates(repo *scm.Repository, changelist string) []string {
	var files []string
	if changelist != "" {
		for _, g := range repo.Changelists() {
			if g.ID == scm.ChangelistGroupID(changelist) {
				files = appendPaths(files, g)
			}
		}
		return files
	}

	cfg := repo.Config()
	files = appendPaths(files, repo.Changes())
	for _, g := range repo.Changelists() {
		if len(g.Resources) == 0 || cfg.IsIgnoredOnCommit(g.Resources[0].Changelist) {
			continue
		}
		files = appendPaths(files, g)
	}
	return files
}

func appendPaths(files []string, g scm.ResourceGroup) []string {
	for _, r := range g.Resources {
		files = append(files, r.Path)
	}
	return files
}

func runPatch(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		var (
			diff string
			err  error
		)
		if patchChangelist != "" {
			diff, err = repo.PatchChangelist(ctx, patchChangelist)
		} else {
			diff, err = repo.Patch(ctx, absPaths(cwd, args))
		}
		if err != nil {
			return err
		}
		return writePatch(cmd.OutOrStdout(), diff)
	})
}

func writePatch(w io.Writer, diff string) error {
	if _, err := io.WriteString(w, diff); err != nil {
		return fmt.Errorf("failed to write patch: %w", err)
	}
	return nil
}
