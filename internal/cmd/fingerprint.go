package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signerhq/trustgen/internal/trust"
	"github.com/signerhq/trustgen/pki"
)

func newFingerprintCmd(cli *CLI) *cobra.Command {
	var (
		label     string
		allowlist string
		colons    bool
	)

	cmd := &cobra.Command{
		Use:   "fingerprint CERTIFICATE",
		Short: "Print a certificate's SHA-256 fingerprint",
		Long: `Print a certificate's SHA-256 fingerprint.

With --label and --allowlist, record the fingerprint in the allowlist
instead, replacing any previous entry for that label.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := pki.LoadCertificate(args[0])
			if err != nil {
				return err
			}

			if label != "" {
				if allowlist == "" {
					return Error{
						Cause:      "--label requires --allowlist",
						Suggestion: "Provide the allowlist file the signing service reads, ex: --allowlist tls/known_clients.txt",
					}
				}

				if err := trust.ExportFingerprint(allowlist, label, cert); err != nil {
					return err
				}

				cli.Output("Recorded %q in %s", label, allowlist)

				return nil
			}

			if colons {
				cli.Output("%s", pki.ColonFingerprint(cert))
			} else {
				cli.Output("%s", pki.Fingerprint(cert))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Record the fingerprint in the allowlist under this label")
	cmd.Flags().StringVar(&allowlist, "allowlist", "", "Path of the allowlist file to update")
	cmd.Flags().BoolVar(&colons, "colons", false, "Print the colon-separated uppercase form")

	return cmd
}
