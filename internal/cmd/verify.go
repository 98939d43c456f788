package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signerhq/trustgen/internal/trust"
	"github.com/signerhq/trustgen/pki"
	"github.com/signerhq/trustgen/secrets"
)

func newVerifyCmd(cli *CLI) *cobra.Command {
	var (
		bundlePath   string
		passwordFile string
		passwordEnv  string
		allowlist    string
		label        string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a bundle decrypts and its certificate is trusted",
		Long: `Check that a bundle decrypts and its certificate is trusted.

Decodes a PKCS#12 bundle with the given password, confirms the contained
key matches the certificate, and warns about expiry. With --allowlist and
--label, also checks the certificate's fingerprint against the allowlist
entry, catching stale fingerprints before they reject a live connection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(passwordFile, passwordEnv)
			if err != nil {
				return err
			}
			defer secrets.Zero(password)

			kp, err := pki.ReadBundle(bundlePath, password)
			if err != nil {
				return Error{
					Cause:         "bundle did not decode",
					OriginalError: err,
					Suggestion:    "Check that the password source matches the one used at provisioning time, and that the consumer platform supports this bundle's encoding mode.",
				}
			}

			if !kp.PrivateKey.PublicKey.Equal(kp.Cert.PublicKey) {
				return fmt.Errorf("bundle %q: %w", bundlePath, pki.ErrKeyMismatch)
			}

			cert := kp.Cert
			cli.Output("Subject:     %s", cert.Subject.CommonName)
			cli.Output("Expires:     %s (%d days)", cert.NotAfter.Format(time.RFC3339), int(time.Until(cert.NotAfter).Hours()/24))
			cli.Output("Fingerprint: %s", pki.Fingerprint(cert))

			if time.Now().After(cert.NotAfter) {
				return fmt.Errorf("certificate in %q expired %s", bundlePath, cert.NotAfter.Format(time.RFC3339))
			}

			if allowlist == "" {
				return nil
			}

			list, err := trust.ReadAllowlist(allowlist)
			if err != nil {
				return err
			}

			if label == "" {
				label = cert.Subject.CommonName
			}

			rec, ok := list.Lookup(label)
			if !ok {
				return Error{
					Cause:      fmt.Sprintf("no allowlist entry for label %q", label),
					Suggestion: "Record the certificate with 'trustgen fingerprint --label' or re-run provisioning.",
				}
			}

			if rec.Fingerprint != pki.Fingerprint(cert) {
				return Error{
					Cause:      fmt.Sprintf("allowlist fingerprint for %q is stale", label),
					Suggestion: "The certificate was regenerated after the allowlist entry; re-run provisioning so the signing service accepts this client.",
				}
			}

			cli.Output("Allowlist:   %q matches", label)

			return nil
		},
	}

	cmd.Flags().StringVar(&bundlePath, "bundle", "", "PKCS#12 bundle to verify")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "File holding the bundle password")
	cmd.Flags().StringVar(&passwordEnv, "password-env", "", "Environment variable holding the bundle password")
	cmd.Flags().StringVar(&allowlist, "allowlist", "", "Allowlist file to check the certificate against")
	cmd.Flags().StringVar(&label, "label", "", "Allowlist label, defaults to the certificate common name")

	if err := cmd.MarkFlagRequired("bundle"); err != nil {
		panic(err)
	}

	return cmd
}

func readPassword(file, env string) ([]byte, error) {
	switch {
	case file != "" && env != "":
		return nil, Error{Cause: "--password-file and --password-env are mutually exclusive"}
	case file != "":
		return secrets.NewFileSecretProviderFromConfig(secrets.FileConfig{}).GetSecret(file)
	case env != "":
		return secrets.NewEnvSecretProviderFromConfig(secrets.GenericConfig{}).GetSecret(env)
	default:
		return nil, Error{
			Cause:      "no password source",
			Suggestion: "Provide --password-file or --password-env; passwords are never taken directly from the command line.",
		}
	}
}
