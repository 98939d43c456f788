package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signerhq/trustgen/internal/cmd/cliopts"
	"github.com/signerhq/trustgen/internal/provision"
)

const exampleConfig = `# trustgen provisioning config
#
# One identity per party. A bundle is produced per entry under 'bundles';
# use legacy mode only when a consumer's TLS framework cannot parse the
# modern PKCS#12 encoding. Password files hold exactly one secret value.

outputDir: tls
# allowlist defaults to <outputDir>/known_clients.txt
# allowlist: tls/known_clients.txt

signer:
  name: signer
  commonName: signer.local
  dnsNames:
    - signer.local
  validityDays: 825
  bundles:
    - mode: modern
      passwordFile: signer-password.txt
    - mode: legacy
      passwordFile: signer-password.txt
      file: signer.legacy.p12

client:
  name: client
  commonName: client.local
  validityDays: 825
  label: lighthouse
  bundles:
    - mode: modern
      passwordFile: client-password.txt
`

func newProvisionCmd(cli *CLI) *cobra.Command {
	var (
		configFilename string
		printExample   bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Generate identities, bundles, and the client allowlist for both parties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printExample {
				cli.Output("%s", exampleConfig)
				return nil
			}

			opts := provision.DefaultOptions()

			if configFilename != "" {
				err := cliopts.Load(&opts, cliopts.Options{Filename: configFilename})
				if err != nil {
					return err
				}
			}

			// command line flags win over the config file
			flags := cmd.Flags()
			if flags.Changed("output-dir") {
				opts.OutputDir, _ = flags.GetString("output-dir")
			}

			if flags.Changed("allowlist") {
				opts.Allowlist, _ = flags.GetString("allowlist")
			}

			if flags.Changed("force") {
				opts.Force, _ = flags.GetBool("force")
			}

			if err := provision.Run(cmd.Context(), &opts); err != nil {
				return err
			}

			cli.Output("Provisioned trust material under %q", opts.OutputDir)

			return nil
		},
	}

	cmd.Flags().StringVarP(&configFilename, "config-file", "f", "", "Provisioning configuration file")
	cmd.Flags().String("output-dir", "", "Directory for generated artifacts")
	cmd.Flags().String("allowlist", "", "Path of the client allowlist file")
	cmd.Flags().Bool("force", false, "Supersede existing identities")
	cmd.Flags().BoolVar(&printExample, "example-config", false, "Print an example configuration file and exit")

	return cmd
}
