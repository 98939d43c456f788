package secrets

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// implements env storage for secret config

type EnvSecretProvider struct {
	GenericConfig
}

func NewEnvSecretProviderFromConfig(cfg GenericConfig) *EnvSecretProvider {
	return &EnvSecretProvider{
		GenericConfig: cfg,
	}
}

var _ SecretStorage = &EnvSecretProvider{}

var invalidNameChars = regexp.MustCompile(`[^\w\d-]`)

func (ep *EnvSecretProvider) SetSecret(name string, secret []byte) error {
	if strings.Contains(name, "$") {
		return errors.New("env secrets cannot contain $")
	}

	name = invalidNameChars.ReplaceAllString(name, "_")

	if err := os.Setenv(name, string(ep.encode(secret))); err != nil {
		return fmt.Errorf("setenv: %w", err)
	}

	return nil
}

func (ep *EnvSecretProvider) GetSecret(name string) (secret []byte, err error) {
	name = invalidNameChars.ReplaceAllString(name, "_")

	b, present := os.LookupEnv(name)
	if !present {
		return nil, ErrNotFound
	}

	result, err := ep.decode([]byte(b))
	if err != nil {
		return nil, fmt.Errorf("base64 decoding %q: %w", name, err)
	}

	return result, nil
}
