package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	ierr "github.com/siteforge/backend/internal/errors"
)

// DecodeCatalog parses a persisted catalog document. A document that is not
// valid JSON or has values of the wrong type is a data-integrity error.
// Invariant violations are not checked here; see Check.
func DecodeCatalog(data []byte) (*Catalog, error) {
	c := NewCatalog()
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The catalog document is malformed").
			Mark(ierr.ErrDataIntegrity)
	}
	return c, nil
}

// EncodeCatalog serializes the whole catalog with two-space indentation,
// keys in storage order and without HTML escaping.
func EncodeCatalog(c *Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize the catalog").
			Mark(ierr.ErrSystem)
	}
	return buf.Bytes(), nil
}

// Revision identifies the content of a stored document. Two loads return the
// same revision exactly when the stored bytes are identical.
func Revision(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
