package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainQuery is the domain prefix for rendered-query fingerprints.
// Version suffix enables future algorithm migration.
const DomainQuery = "graphq/query/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes a stable identity for a rendered query: the backend
// name, the query text and the parameter bindings. Two compilations that
// produce byte-identical text and equal bindings share a fingerprint.
//
// Bindings must hold driver-native values (string, int64, bool, nil).
func Fingerprint(backend, text string, bindings map[string]any) (string, error) {
	if bindings == nil {
		bindings = map[string]any{}
	}
	obj := map[string]any{
		"backend":  backend,
		"text":     text,
		"bindings": bindings,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainQuery, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(backend, text string, bindings map[string]any) string {
	fp, err := Fingerprint(backend, text, bindings)
	if err != nil {
		panic(err)
	}
	return fp
}
