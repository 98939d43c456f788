// Package pki generates the identity material for one party of a mutual-TLS
// pair: an RSA key pair, a self-signed certificate, and the container bundles
// and fingerprints derived from them.
package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"
	"time"
)

const day = 24 * time.Hour

// MaxValidity is the hard ceiling on certificate lifetime. It is driven by
// the strictest consuming platform (Apple's Secure Transport rejects TLS
// server certificates valid for more than 825 days). Exceeding it is a
// configuration error, caught before any key material is produced.
const MaxValidity = 825 * day

const keySize = 4096

var randReader = rand.Reader

// ErrValidityTooLong is returned when the requested certificate lifetime
// exceeds MaxValidity.
var ErrValidityTooLong = errors.New("validity exceeds 825 days")

// SubjectConfig describes the identity to generate: the certificate subject,
// its subject alternative names, and how long the certificate is valid.
type SubjectConfig struct {
	CommonName   string
	Organization string
	DNSNames     []string
	IPAddresses  []net.IP
	Validity     time.Duration
}

func (c SubjectConfig) Validate() error {
	if strings.TrimSpace(c.CommonName) == "" {
		return errors.New("common name must not be empty")
	}

	if c.Validity <= 0 {
		return errors.New("validity must be a positive duration")
	}

	if c.Validity > MaxValidity {
		return fmt.Errorf("%w: requested %v", ErrValidityTooLong, c.Validity)
	}

	return nil
}

// KeyPair holds one party's private key and self-signed certificate. The
// private key never leaves the party that owns it; only the certificate
// crosses the trust boundary.
type KeyPair struct {
	PrivateKey *rsa.PrivateKey
	Cert       *x509.Certificate
	CertRaw    []byte // DER
	CertPEM    []byte
}

// GenerateIdentity creates a fresh RSA-4096 key pair and a certificate bound
// to it, signed with its own key using a SHA-256 digest. NotAfter is exactly
// cfg.Validity after NotBefore.
func GenerateIdentity(cfg SubjectConfig) (*KeyPair, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key, err := rsa.GenerateKey(randReader, keySize)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)

	serial, err := rand.Int(randReader, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("creating random serial: %w", err)
	}

	notBefore := time.Now()

	subject := pkix.Name{CommonName: cfg.CommonName}
	if cfg.Organization != "" {
		subject.Organization = []string{cfg.Organization}
	}

	certTemplate := &x509.Certificate{
		SignatureAlgorithm: x509.SHA256WithRSA,
		SerialNumber:       serial,
		Subject:            subject,
		NotBefore:          notBefore,
		NotAfter:           notBefore.Add(cfg.Validity),
		KeyUsage: x509.KeyUsageDigitalSignature |
			x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageClientAuth,
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,

		DNSNames:    cfg.DNSNames,
		IPAddresses: cfg.IPAddresses,
	}

	rawCert, err := x509.CreateCertificate(randReader, certTemplate, certTemplate, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("creating certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(rawCert)
	if err != nil {
		return nil, fmt.Errorf("parsing self-created certificate: %w", err)
	}

	return &KeyPair{
		PrivateKey: key,
		Cert:       cert,
		CertRaw:    rawCert,
		CertPEM:    certToPEM(rawCert),
	}, nil
}

// KeyPEM returns the private key as an unencrypted PKCS#8 PEM block.
func (k *KeyPair) KeyPEM() ([]byte, error) {
	return marshalPrivateKey(k.PrivateKey)
}

// WriteFiles writes the private key and certificate to two distinct files so
// the certificate can be shared without ever exposing the key. The key file
// is created with mode 0600. If either write fails the partial output is
// removed; the caller must regenerate rather than trust leftovers.
func (k *KeyPair) WriteFiles(keyPath, certPath string) error {
	keyPEM, err := k.KeyPEM()
	if err != nil {
		return err
	}

	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("writing key %q: %w", keyPath, err)
	}

	if err := os.WriteFile(certPath, k.CertPEM, 0o644); err != nil {
		_ = os.Remove(keyPath)
		return fmt.Errorf("writing certificate %q: %w", certPath, err)
	}

	return nil
}

// TLSCertificate returns the keypair in the form the stdlib TLS stack loads.
func (k *KeyPair) TLSCertificate() (*tls.Certificate, error) {
	keyPEM, err := k.KeyPEM()
	if err != nil {
		return nil, fmt.Errorf("marshal keypair: %w", err)
	}

	cert, err := tls.X509KeyPair(k.CertPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("reading keypair: %w", err)
	}

	return &cert, nil
}

// Fingerprint returns the SHA-256 digest of the certificate's DER encoding
// as lowercase hex without separators, the form the signing service's
// client allowlist expects.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// ColonFingerprint is the same digest in the colon-separated uppercase form
// openssl prints, for display only.
func ColonFingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)

	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}

	return strings.Join(parts, ":")
}
