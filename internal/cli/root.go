// Package cli implements the svnscm command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/bolasblack/svnscm/internal/log"
)

var (
	// Version, Commit, and Date are set at build time via ldflags
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var (
	workDir      string
	logLevelFlag string
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "svnscm",
	Short: "svnscm - Subversion working copies at a glance",
	Long: `svnscm drives the svn command-line client and keeps a reconciled view
of your working copy: changes, conflicts, unversioned files, changelists
and incoming remote changes.

Operations retry automatically while the working copy is locked and ask
for credentials when the server rejects the cached ones.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func Execute() {
	err := rootCmd.Execute()
	applog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// GetRootCmd returns the root command for documentation generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func setupLogging(cmd *cobra.Command, args []string) error {
	if err := applog.Init(); err != nil {
		return err
	}
	return applog.SetLevel(logLevelFlag)
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("svnscm version %s\ncommit: %s\ndate: %s\n", Version, Commit, Date))

	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Run as if svnscm was started in this directory")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print operation progress")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(changelistCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(finishCheckoutCmd)
	rootCmd.AddCommand(watchCmd)
}
