// Package provision sequences a full trust-bootstrap run for the two parties
// of a mutual-TLS pair: the signing service (server role) and the client that
// consumes its API. Steps run in dependency order and the run fails fast;
// artifacts from completed steps are left in place for diagnosis.
package provision

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signerhq/trustgen/internal/logging"
	"github.com/signerhq/trustgen/internal/trust"
	"github.com/signerhq/trustgen/pki"
	"github.com/signerhq/trustgen/secrets"
)

// BundleOptions configures one container bundle for a party. Which modes a
// party needs is decided by the operator from the capability table of that
// party's consumers; a legacy bundle is only worth producing for a consumer
// whose TLS framework rejects the modern encoding.
type BundleOptions struct {
	Mode         string `config:"mode"`
	PasswordFile string `config:"passwordFile"`
	File         string `config:"file"`
}

// PartyOptions configures one party's identity.
type PartyOptions struct {
	Name         string          `config:"name"`
	CommonName   string          `config:"commonName"`
	Organization string          `config:"organization"`
	DNSNames     []string        `config:"dnsNames"`
	ValidityDays int             `config:"validityDays"`
	Label        string          `config:"label"`
	Bundles      []BundleOptions `config:"bundles"`
}

type Options struct {
	OutputDir string       `config:"outputDir"`
	Allowlist string       `config:"allowlist"`
	Force     bool         `config:"force"`
	Signer    PartyOptions `config:"signer"`
	Client    PartyOptions `config:"client"`
}

func DefaultOptions() Options {
	return Options{
		OutputDir: "tls",
		Signer: PartyOptions{
			Name:         "signer",
			ValidityDays: 825,
		},
		Client: PartyOptions{
			Name:         "client",
			ValidityDays: 825,
			Bundles:      []BundleOptions{{Mode: "modern"}},
		},
	}
}

func (o *Options) validate() error {
	if o.OutputDir == "" {
		return fmt.Errorf("output directory must be set")
	}

	for _, party := range []*PartyOptions{&o.Signer, &o.Client} {
		if party.Name == "" {
			return fmt.Errorf("party name must be set")
		}

		if party.CommonName == "" {
			return fmt.Errorf("party %q: common name must be set", party.Name)
		}

		for i := range party.Bundles {
			if _, err := pki.ParseBundleMode(party.Bundles[i].Mode); err != nil {
				return fmt.Errorf("party %q: %w", party.Name, err)
			}

			if party.Bundles[i].PasswordFile == "" {
				return fmt.Errorf("party %q: bundle %d has no password file", party.Name, i)
			}
		}
	}

	if o.Allowlist == "" {
		o.Allowlist = filepath.Join(o.OutputDir, "known_clients.txt")
	}

	if o.Client.Label == "" {
		o.Client.Label = o.Client.Name
	}

	return nil
}

func (p PartyOptions) subjectConfig() pki.SubjectConfig {
	return pki.SubjectConfig{
		CommonName:   p.CommonName,
		Organization: p.Organization,
		DNSNames:     p.DNSNames,
		Validity:     time.Duration(p.ValidityDays) * 24 * time.Hour,
	}
}

func stepErr(party, step string, err error) error {
	return fmt.Errorf("party %q: %s: %w", party, step, err)
}

// Run provisions both parties. Configuration errors surface before any key
// material is produced; each later failure aborts the remaining steps and
// reports which party and step failed. Defaults applied during validation
// (the allowlist path, the client label) are written back to opts so the
// caller sees the effective configuration.
func Run(ctx context.Context, opts *Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	// validate both subjects up front so a bad validity on the client does
	// not cost a discarded signer identity
	for _, party := range []PartyOptions{opts.Signer, opts.Client} {
		if err := party.subjectConfig().Validate(); err != nil {
			return fmt.Errorf("party %q: %w", party.Name, err)
		}
	}

	r := &run{opts: *opts}

	steps := []struct {
		party string
		name  string
		fn    func() error
	}{
		{opts.Signer.Name, "generate identity", r.generateSigner},
		{opts.Signer.Name, "write bundles", r.writeSignerBundles},
		{opts.Client.Name, "export trusted certificate", r.exportSignerCert},
		{opts.Client.Name, "generate identity", r.generateClient},
		{opts.Client.Name, "write bundles", r.writeClientBundles},
		{opts.Client.Name, "update allowlist", r.updateAllowlist},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		logging.Infof("party %q: %s", step.party, step.name)

		if err := step.fn(); err != nil {
			return stepErr(step.party, step.name, err)
		}
	}

	r.warnSharedPasswords()

	logging.Infof("provisioned %q and %q under %q", opts.Signer.Name, opts.Client.Name, opts.OutputDir)

	return nil
}

type run struct {
	opts   Options
	signer *pki.KeyPair
	client *pki.KeyPair

	// SHA-256 of each party's bundle passwords, kept instead of the values
	// so reuse across parties can be flagged without retaining the secrets
	signerPasswordDigests [][32]byte
	clientPasswordDigests [][32]byte
}

func (r *run) partyDir(p PartyOptions) string {
	return filepath.Join(r.opts.OutputDir, p.Name)
}

func (r *run) generateIdentity(p PartyOptions) (*pki.KeyPair, error) {
	dir := r.partyDir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating %q: %w", dir, err)
	}

	keyPath := filepath.Join(dir, p.Name+".key")

	// re-provisioning supersedes an identity and breaks the existing trust
	// relationship until every artifact is redistributed, so it has to be
	// asked for explicitly
	if !r.opts.Force {
		if _, err := os.Stat(keyPath); err == nil {
			return nil, fmt.Errorf("%q already exists, re-run with --force to supersede this identity", keyPath)
		}
	}

	kp, err := pki.GenerateIdentity(p.subjectConfig())
	if err != nil {
		return nil, err
	}

	if err := kp.WriteFiles(keyPath, filepath.Join(dir, p.Name+".crt")); err != nil {
		return nil, err
	}

	return kp, nil
}

func (r *run) writeBundles(p PartyOptions, kp *pki.KeyPair) ([][32]byte, error) {
	passwordFiles := secrets.NewFileSecretProviderFromConfig(secrets.FileConfig{})

	var digests [][32]byte

	for _, b := range p.Bundles {
		mode, err := pki.ParseBundleMode(b.Mode)
		if err != nil {
			return digests, err
		}

		password, err := passwordFiles.GetSecret(b.PasswordFile)
		if err != nil {
			return digests, fmt.Errorf("password file %q: %w", b.PasswordFile, err)
		}

		file := b.File
		if file == "" {
			file = p.Name + ".p12"
			if mode == pki.ModeLegacy {
				file = p.Name + ".legacy.p12"
			}
		}

		path := filepath.Join(r.partyDir(p), file)

		err = pki.WriteBundle(kp, mode, password, path)
		digest := sha256.Sum256(password)
		secrets.Zero(password)

		if err != nil {
			return digests, err
		}

		digests = append(digests, digest)

		logging.Debugf("wrote %v bundle %q", mode, path)
	}

	return digests, nil
}

func (r *run) generateSigner() (err error) {
	r.signer, err = r.generateIdentity(r.opts.Signer)
	return err
}

func (r *run) writeSignerBundles() (err error) {
	r.signerPasswordDigests, err = r.writeBundles(r.opts.Signer, r.signer)
	return err
}

// exportSignerCert copies the signer certificate to where the client's trust
// store expects it. Only the certificate crosses the trust boundary.
func (r *run) exportSignerCert() error {
	dir := filepath.Join(r.partyDir(r.opts.Client), "trusted")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", dir, err)
	}

	path := filepath.Join(dir, r.opts.Signer.Name+".crt")
	if err := os.WriteFile(path, r.signer.CertPEM, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}

	return nil
}

func (r *run) generateClient() (err error) {
	r.client, err = r.generateIdentity(r.opts.Client)
	return err
}

func (r *run) writeClientBundles() (err error) {
	r.clientPasswordDigests, err = r.writeBundles(r.opts.Client, r.client)
	return err
}

func (r *run) updateAllowlist() error {
	return trust.ExportFingerprint(r.opts.Allowlist, r.opts.Client.Label, r.client.Cert)
}

func (r *run) warnSharedPasswords() {
	for _, s := range r.signerPasswordDigests {
		for _, c := range r.clientPasswordDigests {
			if s == c {
				logging.Warnf("parties %q and %q share a bundle password; give each party its own secret",
					r.opts.Signer.Name, r.opts.Client.Name)
				return
			}
		}
	}
}
