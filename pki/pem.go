package pki

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

func certToPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: der,
	})
}

func marshalPrivateKey(key any) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshalling private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	}), nil
}

// ReadFromPEMFile reads a file and decodes every PEM block it contains,
// returning the blocks and the raw file bytes.
func ReadFromPEMFile(path string) ([]*pem.Block, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %q: %w", path, err)
	}

	var blocks []*pem.Block

	rest := raw
	for {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		blocks = append(blocks, block)
	}

	if len(blocks) == 0 {
		return nil, nil, fmt.Errorf("%q contains no PEM data", path)
	}

	return blocks, raw, nil
}

// LoadCertificate reads a PEM file and parses the first certificate in it.
func LoadCertificate(path string) (*x509.Certificate, error) {
	blocks, _, err := ReadFromPEMFile(path)
	if err != nil {
		return nil, err
	}

	for _, block := range blocks {
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate from %q: %w", path, err)
		}

		return cert, nil
	}

	return nil, errors.New("no CERTIFICATE block in " + path)
}
