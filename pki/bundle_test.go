package pki

import (
	"crypto/x509"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseBundleMode(t *testing.T) {
	mode, err := ParseBundleMode("modern")
	assert.NilError(t, err)
	assert.Equal(t, mode, ModeModern)

	mode, err = ParseBundleMode("")
	assert.NilError(t, err)
	assert.Equal(t, mode, ModeModern)

	mode, err = ParseBundleMode("legacy")
	assert.NilError(t, err)
	assert.Equal(t, mode, ModeLegacy)

	_, err = ParseBundleMode("pkcs12")
	assert.ErrorContains(t, err, `unknown bundle mode "pkcs12"`)
}

func TestEncodeBundleRejectsEmptyPassword(t *testing.T) {
	kp := sharedIdentity(t)

	_, err := EncodeBundle(kp, ModeModern, nil)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestEncodeBundleRejectsMismatchedKey(t *testing.T) {
	kp := sharedIdentity(t)

	other, err := GenerateIdentity(SubjectConfig{
		CommonName: "other.local",
		Validity:   day,
	})
	assert.NilError(t, err)

	mismatched := &KeyPair{
		PrivateKey: other.PrivateKey,
		Cert:       kp.Cert,
		CertRaw:    kp.CertRaw,
		CertPEM:    kp.CertPEM,
	}

	_, err = EncodeBundle(mismatched, ModeModern, []byte("p@ss"))
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestBundleRoundTrip(t *testing.T) {
	kp := sharedIdentity(t)
	password := []byte("p@ss")

	for _, mode := range []BundleMode{ModeModern, ModeLegacy} {
		t.Run(mode.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "identity.p12")

			err := WriteBundle(kp, mode, password, path)
			assert.NilError(t, err)

			loaded, err := ReadBundle(path, password)
			assert.NilError(t, err)

			// both modes decrypt to the identical key and certificate
			assert.Assert(t, loaded.PrivateKey.Equal(kp.PrivateKey))
			assert.DeepEqual(t, loaded.CertRaw, kp.CertRaw)

			original, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
			assert.NilError(t, err)
			decoded, err := x509.MarshalPKCS8PrivateKey(loaded.PrivateKey)
			assert.NilError(t, err)
			assert.DeepEqual(t, decoded, original)

			// wrong password does not decode
			_, err = ReadBundle(path, []byte("not-the-password"))
			assert.ErrorContains(t, err, "decoding bundle")
		})
	}
}
