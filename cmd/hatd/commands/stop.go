package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/supervisor"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running hatd daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			layout := resolveLayout(cfg)
			sup := supervisor.New(layout, resolveHatdBin())
			if err := sup.Stop(); err != nil {
				return err
			}
			fmt.Println("hatd stopped")
			return nil
		},
	}
}
