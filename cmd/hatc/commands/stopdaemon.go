package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/client"
)

// newStopDaemonCmd requests a graceful daemon shutdown. Restricted to
// euid 0, matching client.py's "Unknown operation" rejection for
// unprivileged callers.
func newStopDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop-daemon",
		Short: "Request a graceful hatd shutdown (root only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if os.Geteuid() != 0 {
				fmt.Println("Unknown operation")
				os.Exit(1)
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			layout := resolveLayout(cfg)
			requireDaemonRunning(layout)

			c := client.New(layout, os.Geteuid())
			return c.StopDaemon()
		},
	}
}
