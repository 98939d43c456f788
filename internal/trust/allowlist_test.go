package trust

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/signerhq/trustgen/pki"
)

func TestReadAllowlist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_clients.txt")

	t.Run("missing file is empty", func(t *testing.T) {
		list, err := ReadAllowlist(path)
		assert.NilError(t, err)
		assert.Assert(t, is.Len(list.Records, 0))
	})

	t.Run("parses records in order", func(t *testing.T) {
		content := "lighthouse " + strings.Repeat("ab", 32) + "\n" +
			"backup " + strings.Repeat("cd", 32) + "\n"
		assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))

		list, err := ReadAllowlist(path)
		assert.NilError(t, err)
		assert.Assert(t, is.Len(list.Records, 2))
		assert.Equal(t, list.Records[0].Label, "lighthouse")
		assert.Equal(t, list.Records[1].Label, "backup")
	})

	t.Run("rejects malformed line", func(t *testing.T) {
		assert.NilError(t, os.WriteFile(path, []byte("just-a-label\n"), 0o644))

		_, err := ReadAllowlist(path)
		assert.ErrorContains(t, err, "line 1")
	})

	t.Run("rejects non-hex fingerprint", func(t *testing.T) {
		assert.NilError(t, os.WriteFile(path, []byte("lighthouse zz"+strings.Repeat("ab", 31)+"\n"), 0o644))

		_, err := ReadAllowlist(path)
		assert.ErrorContains(t, err, "not a hex SHA-256 fingerprint")
	})
}

func TestUpsert(t *testing.T) {
	list := &Allowlist{}

	list.Upsert(Record{Label: "lighthouse", Fingerprint: strings.Repeat("ab", 32)})
	list.Upsert(Record{Label: "backup", Fingerprint: strings.Repeat("cd", 32)})
	assert.Assert(t, is.Len(list.Records, 2))

	// replacing keeps position, never duplicates
	list.Upsert(Record{Label: "lighthouse", Fingerprint: strings.Repeat("ef", 32)})
	assert.Assert(t, is.Len(list.Records, 2))
	assert.Equal(t, list.Records[0].Label, "lighthouse")
	assert.Equal(t, list.Records[0].Fingerprint, strings.Repeat("ef", 32))
}

func TestExportFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_clients.txt")

	kp, err := pki.GenerateIdentity(pki.SubjectConfig{
		CommonName: "client.local",
		Validity:   24 * time.Hour,
	})
	assert.NilError(t, err)

	err = ExportFingerprint(path, "lighthouse", kp.Cert)
	assert.NilError(t, err)

	raw, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(raw), "lighthouse "+pki.Fingerprint(kp.Cert)+"\n")

	// idempotent for the unchanged certificate
	err = ExportFingerprint(path, "lighthouse", kp.Cert)
	assert.NilError(t, err)

	again, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, again, raw)

	// a regenerated certificate replaces the stale fingerprint
	regenerated, err := pki.GenerateIdentity(pki.SubjectConfig{
		CommonName: "client.local",
		Validity:   24 * time.Hour,
	})
	assert.NilError(t, err)

	err = ExportFingerprint(path, "lighthouse", regenerated.Cert)
	assert.NilError(t, err)

	list, err := ReadAllowlist(path)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(list.Records, 1))
	assert.Equal(t, list.Records[0].Fingerprint, pki.Fingerprint(regenerated.Cert))

	for _, rec := range list.Records {
		assert.Assert(t, rec.Fingerprint != pki.Fingerprint(kp.Cert))
	}
}
