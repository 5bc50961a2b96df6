package testhelper

import (
	"crypto/x509"
	"encoding/pem"
	"log"
	"os"
	"path/filepath"
)

// WriteCA writes cert as a PEM encoded authority into dir and returns the
// file path.
func WriteCA(dir string, cert *x509.Certificate) string {
	path := filepath.Join(dir, "ca.crt")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})

	if err := os.WriteFile(path, data, 0o600); err != nil {
		log.Fatalf("failed to write CA file: %s", err)
	}
	return path
}
