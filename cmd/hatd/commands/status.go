package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/supervisor"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether hatd is running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			layout := resolveLayout(cfg)
			sup := supervisor.New(layout, resolveHatdBin())
			running, pid := sup.Status()
			if running {
				fmt.Printf("hatd running (pid %d)\n", pid)
			} else {
				fmt.Println("hatd not running")
			}
			return nil
		},
	}
}
