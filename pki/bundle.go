package pki

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// BundleMode selects the PKCS#12 cipher/MAC suite. The mode is an explicit
// parameter rather than a library default: which suite a consumer can parse
// is a compatibility contract, and it must not shift underneath the operator
// when a dependency updates its default.
type BundleMode int

const (
	// ModeModern encrypts with the current AES-CBC/SHA-2 suite. Not every
	// native TLS framework can parse it.
	ModeModern BundleMode = iota
	// ModeLegacy encrypts with the RC2/3DES suite understood by frameworks
	// that predate the modern one. Produce it only for consumers that
	// actually need it.
	ModeLegacy
)

var (
	ErrKeyMismatch   = errors.New("private key does not match certificate")
	ErrEmptyPassword = errors.New("bundle password must not be empty")
)

func ParseBundleMode(s string) (BundleMode, error) {
	switch s {
	case "", "modern":
		return ModeModern, nil
	case "legacy":
		return ModeLegacy, nil
	default:
		return 0, fmt.Errorf("unknown bundle mode %q, expecting modern or legacy", s)
	}
}

func (m BundleMode) String() string {
	switch m {
	case ModeModern:
		return "modern"
	case ModeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("BundleMode(%d)", int(m))
	}
}

func (m BundleMode) encoder() (*pkcs12.Encoder, error) {
	switch m {
	case ModeModern:
		return pkcs12.Modern, nil
	case ModeLegacy:
		return pkcs12.LegacyRC2, nil
	default:
		return nil, fmt.Errorf("unknown bundle mode %v", m)
	}
}

// EncodeBundle packages the key pair and its certificate into a single
// password-encrypted PKCS#12 container using the suite selected by mode.
// The key is checked against the certificate first: a mismatched bundle
// would break mutual authentication silently at connection time.
func EncodeBundle(kp *KeyPair, mode BundleMode, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}

	if !kp.PrivateKey.PublicKey.Equal(kp.Cert.PublicKey) {
		return nil, ErrKeyMismatch
	}

	encoder, err := mode.encoder()
	if err != nil {
		return nil, err
	}

	data, err := encoder.Encode(kp.PrivateKey, kp.Cert, nil, string(password))
	if err != nil {
		return nil, fmt.Errorf("encoding %v bundle: %w", mode, err)
	}

	return data, nil
}

// WriteBundle encodes the bundle and writes it with mode 0600. No file is
// written when encoding fails.
func WriteBundle(kp *KeyPair, mode BundleMode, password []byte, path string) error {
	data, err := EncodeBundle(kp, mode, password)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing bundle %q: %w", path, err)
	}

	return nil
}

// ReadBundle decrypts a PKCS#12 bundle back into a key pair. Both encoding
// modes decode the same way; this exists so a bundle can be verified before
// it is shipped to the party that will load it.
func ReadBundle(path string, password []byte) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle %q: %w", path, err)
	}

	key, cert, err := pkcs12.Decode(data, string(password))
	if err != nil {
		return nil, fmt.Errorf("decoding bundle %q: %w", path, err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("bundle %q holds a %T, expected an RSA key", path, key)
	}

	return &KeyPair{
		PrivateKey: rsaKey,
		Cert:       cert,
		CertRaw:    cert.Raw,
		CertPEM:    certToPEM(cert.Raw),
	}, nil
}
