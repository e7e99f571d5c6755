package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/supervisor"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start hatd as a background daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			layout := resolveLayout(cfg)
			sup := supervisor.New(layout, resolveHatdBin())
			if err := sup.Start(); err != nil {
				return err
			}
			fmt.Println("hatd started")
			return nil
		},
	}
}
