package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/svn"
)

var (
	logFrom    string
	logTo      string
	logLimit   int
	logVerbose bool
	logOutput  string

	showRevision string
)

var logCmd = &cobra.Command{
	Use:   "log [path]",
	Short: "Show the commit history",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLog,
}

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a file as it is in a revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	logCmd.Flags().StringVar(&logFrom, "from", "", "First revision (default HEAD)")
	logCmd.Flags().StringVar(&logTo, "to", "", "Last revision (default 1)")
	logCmd.Flags().IntVarP(&logLimit, "limit", "l", 20, "Maximum number of entries (0 for all)")
	logCmd.Flags().BoolVarP(&logVerbose, "verbose", "v", false, "List changed paths")
	logCmd.Flags().StringVarP(&logOutput, "output", "o", FormatText, "Output format (text, json, yaml)")

	showCmd.Flags().StringVarP(&showRevision, "revision", "r", "BASE", "Revision to show")
}

func runLog(cmd *cobra.Command, args []string) error {
	if err := validateFormat(logOutput); err != nil {
		return err
	}
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		opts := svn.LogOptions{
			From:    logFrom,
			To:      logTo,
			Limit:   logLimit,
			Verbose: logVerbose,
		}
		if len(args) == 1 {
			opts.Target = absPaths(cwd, args)[0]
		}
		entries, err := repo.Log(ctx, opts)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), logOutput, entries, func(w io.Writer) { renderLog(w, entries) })
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	return withRepository(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, deps *cliDeps, repo *scm.Repository, cwd string) error {
		content, err := repo.Show(ctx, absPaths(cwd, args)[0], showRevision)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), content)
		return err
	})
}
