package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestFileSecretProvider(t *testing.T) {
	dir := t.TempDir()

	fp := NewFileSecretProviderFromConfig(FileConfig{Path: dir})

	err := fp.SetSecret("bundle-password", []byte("p@ss"))
	assert.NilError(t, err)

	secret, err := fp.GetSecret("bundle-password")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "p@ss")

	_, err = fp.GetSecret("no-such-secret")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSecretProviderTrimsTrailingNewline(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "password"), []byte("p@ss\n"), 0o600)
	assert.NilError(t, err)

	fp := NewFileSecretProviderFromConfig(FileConfig{Path: dir})

	secret, err := fp.GetSecret("password")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "p@ss")
}

func TestFileSecretProviderBase64(t *testing.T) {
	dir := t.TempDir()

	fp := NewFileSecretProviderFromConfig(FileConfig{
		GenericConfig: GenericConfig{Base64: true},
		Path:          dir,
	})

	err := fp.SetSecret("encoded", []byte("p@ss"))
	assert.NilError(t, err)

	secret, err := fp.GetSecret("encoded")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "p@ss")
}

func TestEnvSecretProvider(t *testing.T) {
	ep := NewEnvSecretProviderFromConfig(GenericConfig{})

	t.Setenv("TRUSTGEN_TEST_SECRET", "p@ss")

	secret, err := ep.GetSecret("TRUSTGEN_TEST_SECRET")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "p@ss")

	_, err = ep.GetSecret("TRUSTGEN_TEST_SECRET_MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlainSecretProvider(t *testing.T) {
	pp := NewPlainSecretProviderFromConfig(GenericConfig{})

	secret, err := pp.GetSecret("p@ss")
	assert.NilError(t, err)
	assert.Equal(t, string(secret), "p@ss")

	err = pp.SetSecret("anything", []byte("value"))
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestZero(t *testing.T) {
	b := []byte("p@ss")
	Zero(b)
	assert.DeepEqual(t, b, []byte{0, 0, 0, 0})
}
