// Package commands implements hatd's CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "hatd",
		Short:   "hatd - per-host one-shot job scheduler daemon",
		Version: version,
		Long: `hatd is the daemon half of a per-host one-shot job scheduler.
It fires jobs submitted by hatc at their requested wall-clock time,
capturing stdout/stderr per submitting user.

Examples:
  hatd start
  hatd status
  hatd stop
  hatd run        # foreground, used internally by start`,
	}

	rootCmd.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newRunCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to hatd.yaml")
	rootCmd.PersistentFlags().String("env-file", "", "path to a .env file with HATD_* overrides")
	rootCmd.PersistentFlags().StringP("base-dir", "b", "", "override the root of the filesystem layout (default /)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
