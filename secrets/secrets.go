// Package secrets provides scoped sources for sensitive values, primarily
// the passwords that encrypt container bundles. Secrets are read through a
// narrow interface so the value never appears on a command line or in logs.
package secrets

import (
	"encoding/base64"
	"errors"
)

var ErrNotFound = errors.New("secret not found")

// SecretStorage is implemented by a provider if the provider gives a
// mechanism for reading and storing arbitrary secrets.
type SecretStorage interface {
	SetSecret(name string, secret []byte) error
	GetSecret(name string) (secret []byte, err error)
}

// GenericConfig holds encoding options shared by all providers. Base64 is
// useful when a secret must survive transports that mangle raw bytes.
type GenericConfig struct {
	Base64           bool `yaml:"base64"`
	Base64URLEncoded bool `yaml:"base64UrlEncoded"`
	Base64Raw        bool `yaml:"base64Raw"`
}

func (c GenericConfig) encoder() *base64.Encoding {
	if c.Base64URLEncoded {
		if c.Base64Raw {
			return base64.RawURLEncoding
		}

		return base64.URLEncoding
	}

	if c.Base64Raw {
		return base64.RawStdEncoding
	}

	return base64.StdEncoding
}

func (c GenericConfig) decode(b []byte) ([]byte, error) {
	if !c.Base64 {
		return b, nil
	}

	result := make([]byte, c.encoder().DecodedLen(len(b)))

	written, err := c.encoder().Decode(result, b)
	if err != nil {
		return nil, err
	}

	return result[:written], nil
}

func (c GenericConfig) encode(secret []byte) []byte {
	if !c.Base64 {
		b := make([]byte, len(secret))
		copy(b, secret)

		return b
	}

	b := make([]byte, c.encoder().EncodedLen(len(secret)))
	c.encoder().Encode(b, secret)

	return b
}

// Zero overwrites a secret buffer in place. Callers release passwords this
// way on every exit path so the value does not stay resident longer than the
// operation that needed it.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
