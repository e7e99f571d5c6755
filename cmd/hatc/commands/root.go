// Package commands implements hatc's CLI surface using cobra.
package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/client"
)

// NewRootCmd creates hatc's root command. Unlike hatd, hatc's primary
// behavior lives on the root command itself via flags, following
// client.py's argument_serializer: one of -l/-c/-a/-m/-r selects the
// operation (if several are given, -c wins, then -a, -m, -r; none reads as
// --list), matching original_source's flag-based dispatch rather than a
// cobra subcommand tree.
func NewRootCmd(version string) *cobra.Command {
	var (
		doList     bool
		doCount    bool
		addArgs    []string
		modifyArgs []string
		removeArgs []string
	)

	rootCmd := &cobra.Command{
		Use:     "hatc",
		Short:   "hatc - hat client",
		Version: version,
		Long: `hatc is the client half of a per-host one-shot job scheduler.

Examples:
  hatc --list
  hatc --count
  hatc --add 'free -m' 'now + 30 min'
  hatc --add 'tail -10 /var/log/syslog' 'tomorrow at 14:30' bash
  hatc --modify 12 'echo hi' 'now + 1 hour'
  hatc --remove 3 8 23`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			layout := resolveLayout(cfg)
			requireDaemonRunning(layout)

			c := client.New(layout, os.Geteuid())

			// Only the word right after -a/-m/-r binds to the flag; the
			// words that follow it arrive as positional args.
			switch {
			case len(addArgs) > 0:
				addArgs = append(addArgs, args...)
			case len(modifyArgs) > 0:
				modifyArgs = append(modifyArgs, args...)
			case len(removeArgs) > 0:
				removeArgs = append(removeArgs, args...)
			}

			switch {
			case doCount:
				return printReply(c.Count())

			case len(addArgs) > 0:
				if len(addArgs) != 2 && len(addArgs) != 3 {
					ambiguousInput()
					return nil
				}
				shell := ""
				if len(addArgs) == 3 {
					shell = addArgs[2]
				}
				return printReply(c.Add(addArgs[0], addArgs[1], shell))

			case len(modifyArgs) > 0:
				if len(modifyArgs) != 3 && len(modifyArgs) != 4 {
					ambiguousInput()
					return nil
				}
				jobID, err := strconv.Atoi(modifyArgs[0])
				if err != nil {
					ambiguousInput()
					return nil
				}
				shell := ""
				if len(modifyArgs) == 4 {
					shell = modifyArgs[3]
				}
				return printReply(c.Modify(jobID, modifyArgs[1], modifyArgs[2], shell))

			case len(removeArgs) > 0:
				ids := make([]int, 0, len(removeArgs))
				for _, a := range removeArgs {
					id, err := strconv.Atoi(a)
					if err != nil {
						ambiguousInput()
						return nil
					}
					ids = append(ids, id)
				}
				return printReply(c.Remove(ids))

			default: // doList, or nothing given: defaults to list
				return printReply(c.List())
			}
		},
	}

	rootCmd.Flags().BoolVarP(&doList, "list", "l", false, "list queued jobs for the current user (default)")
	rootCmd.Flags().BoolVarP(&doCount, "count", "c", false, "show the number of queued jobs for the current user")
	rootCmd.Flags().StringArrayVarP(&addArgs, "add", "a", nil, "<command> <time spec> [<shell>]: queue a new job")
	rootCmd.Flags().StringArrayVarP(&modifyArgs, "modify", "m", nil, "<job id> <command> <time spec> [<shell>]: modify a queued job")
	rootCmd.Flags().StringArrayVarP(&removeArgs, "remove", "r", nil, "<job id>...: remove queued job(s)")

	rootCmd.PersistentFlags().String("config", "", "path to hatd.yaml")
	rootCmd.PersistentFlags().String("env-file", "", "path to a .env file with HATD_* overrides")
	rootCmd.PersistentFlags().StringP("base-dir", "b", "", "override the root of the filesystem layout (default /)")

	rootCmd.AddCommand(newStopDaemonCmd())

	return rootCmd
}

func printReply(reply string, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}
