package table

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSchema is the domain prefix for schema hashing. The version
// suffix enables future algorithm migration.
const DomainSchema = "tabsdata/schema/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SchemaHash computes the content-addressed hash of an ordered column
// schema. The hash is stable across processes given the same columns in
// the same order; reordering columns changes the hash.
func SchemaHash(cols []Column) (string, error) {
	pairs := make([]any, len(cols))
	for i, c := range cols {
		pairs[i] = []any{c.Name, c.Type}
	}
	canonical, err := MarshalCanonical(pairs)
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// MustSchemaHash is like SchemaHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSchemaHash(cols []Column) string {
	hash, err := SchemaHash(cols)
	if err != nil {
		panic(err)
	}
	return hash
}
