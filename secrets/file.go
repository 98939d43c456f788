package secrets

import (
	"bytes"
	"fmt"
	"os"
	"path"
)

// implements file storage for secret config

type FileConfig struct {
	GenericConfig
	Path string `yaml:"path"`
}

// FileSecretProvider reads secrets from files under a base path. Bundle
// passwords come from here: a file holding exactly one value, referenced by
// name, never passed on a process command line.
type FileSecretProvider struct {
	FileConfig
}

func NewFileSecretProviderFromConfig(cfg FileConfig) *FileSecretProvider {
	return &FileSecretProvider{
		FileConfig: cfg,
	}
}

var _ SecretStorage = &FileSecretProvider{}

func (fp *FileSecretProvider) SetSecret(name string, secret []byte) error {
	fullPath := fp.fullPath(name)

	if dir := path.Dir(fullPath); len(dir) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %q: %w", dir, err)
		}
	}

	if err := os.WriteFile(fullPath, fp.encode(secret), 0o600); err != nil {
		return fmt.Errorf("writing file %q: %w", fullPath, err)
	}

	return nil
}

func (fp *FileSecretProvider) GetSecret(name string) (secret []byte, err error) {
	fullPath := fp.fullPath(name)

	b, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("reading file %q: %w", fullPath, err)
	}

	// a trailing newline is editor noise, not part of the secret
	b = bytes.TrimRight(b, "\r\n")

	result, err := fp.decode(b)
	if err != nil {
		return nil, fmt.Errorf("base64 decoding file %q: %w", fullPath, err)
	}

	return result, nil
}

func (fp *FileSecretProvider) fullPath(name string) string {
	if len(fp.Path) == 0 {
		return name
	}

	return path.Join(fp.Path, name)
}
