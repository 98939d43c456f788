// Package cmd implements the trustgen command line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/signerhq/trustgen/internal/cmd/cliopts"
	"github.com/signerhq/trustgen/internal/logging"
)

// Run the main CLI command with the given args. The args should not contain
// the name of the binary (ex: os.Args[1:]).
func Run(ctx context.Context, args ...string) error {
	cli := newCLI(ctx)
	cmd := NewRootCmd(cli)
	cmd.SetArgs(args)
	cmd.SetOut(cli.Stdout)
	cmd.SetErr(cli.Stderr)

	return cmd.ExecuteContext(ctx)
}

func NewRootCmd(cli *CLI) *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:               "trustgen",
		Short:             "Provision mutual-TLS trust between a remote signer and its client",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cliopts.DefaultsFromEnv("TRUSTGEN", cmd.Flags()); err != nil {
				return err
			}

			return logging.SetLevel(cli.RootOptions.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(
		newProvisionCmd(cli),
		newFingerprintCmd(cli),
		newVerifyCmd(cli),
		newVersionCmd(cli),
	)

	rootCmd.PersistentFlags().StringVar(&cli.RootOptions.LogLevel, "log-level", "info", "Show logs when running the command [error, warn, info, debug]")

	return rootCmd
}
