package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signerhq/trustgen/internal"
)

func newVersionCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the trustgen version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Output("%s", internal.FullVersion())
			return nil
		},
	}
}
