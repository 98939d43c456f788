package secrets

import (
	"errors"
	"fmt"
)

var ErrNotImplemented = errors.New("not implemented")

// implements plain "storage" for secret config

// PlainSecretProvider treats the name itself as the secret value. Useful in
// tests; avoid it for real bundle passwords since the value then appears
// wherever the config does.
type PlainSecretProvider struct {
	GenericConfig
}

func NewPlainSecretProviderFromConfig(cfg GenericConfig) *PlainSecretProvider {
	return &PlainSecretProvider{
		GenericConfig: cfg,
	}
}

var _ SecretStorage = &PlainSecretProvider{}

func (pp *PlainSecretProvider) SetSecret(name string, secret []byte) error {
	return ErrNotImplemented // and not really possible to implement...
}

func (pp *PlainSecretProvider) GetSecret(name string) (secret []byte, err error) {
	result, err := pp.decode([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("base64 decoding: %w", err)
	}

	return result, nil
}
