// Package trust maintains the signing service's client allowlist: one line
// per authorized client, a label and the SHA-256 fingerprint of its
// certificate.
package trust

import (
	"bufio"
	"crypto/x509"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/signerhq/trustgen/pki"
)

var fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Record pairs a label identifying the certificate's owner with the
// lowercase hex SHA-256 fingerprint of the certificate's DER encoding.
type Record struct {
	Label       string
	Fingerprint string
}

func (r Record) String() string {
	return r.Label + " " + r.Fingerprint
}

// Allowlist is an ordered set of records; order is generation order and is
// preserved across rewrites. A label appears at most once.
type Allowlist struct {
	Records []Record
}

// ReadAllowlist parses an allowlist file. A missing file is an empty list,
// since the first provisioning run starts from nothing. A malformed line is
// an error: a fingerprint the consumer cannot match rejects every presented
// certificate, so damage must surface here rather than at connection time.
func ReadAllowlist(path string) (*Allowlist, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Allowlist{}, nil
		}

		return nil, fmt.Errorf("opening allowlist %q: %w", path, err)
	}
	defer f.Close()

	list := &Allowlist{}

	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("allowlist %q line %d: expected \"<label> <fingerprint>\", got %q", path, lineNo, line)
		}

		fingerprint := strings.ToLower(fields[1])
		if !fingerprintPattern.MatchString(fingerprint) {
			return nil, fmt.Errorf("allowlist %q line %d: %q is not a hex SHA-256 fingerprint", path, lineNo, fields[1])
		}

		list.Records = append(list.Records, Record{
			Label:       fields[0],
			Fingerprint: fingerprint,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading allowlist %q: %w", path, err)
	}

	return list, nil
}

// Upsert replaces the record with the same label in place, or appends when
// the label is new. Appending without deduplication would leave a stale
// fingerprint alongside the fresh one after a certificate is regenerated.
func (l *Allowlist) Upsert(rec Record) {
	for i, existing := range l.Records {
		if existing.Label == rec.Label {
			l.Records[i] = rec
			return
		}
	}

	l.Records = append(l.Records, rec)
}

// Lookup returns the record for a label, if present.
func (l *Allowlist) Lookup(label string) (Record, bool) {
	for _, rec := range l.Records {
		if rec.Label == label {
			return rec, true
		}
	}

	return Record{}, false
}

// WriteFile rewrites the whole allowlist, one newline-terminated record per
// line, in record order.
func (l *Allowlist) WriteFile(path string) error {
	var sb strings.Builder
	for _, rec := range l.Records {
		sb.WriteString(rec.String())
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing allowlist %q: %w", path, err)
	}

	return nil
}

// ExportFingerprint records a certificate's fingerprint under a label,
// replacing any previous fingerprint for that label. Idempotent for an
// unchanged certificate.
func ExportFingerprint(path, label string, cert *x509.Certificate) error {
	list, err := ReadAllowlist(path)
	if err != nil {
		return err
	}

	list.Upsert(Record{
		Label:       label,
		Fingerprint: pki.Fingerprint(cert),
	})

	return list.WriteFile(path)
}
