package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashPrefix is the scheme prefix carried by every stored content hash.
const HashPrefix = "sha256:"

// HashBytes returns the content hash of data in canonical form:
// "sha256:" followed by the lowercase hex digest.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// ValidateContentHash checks that h is a canonical content hash.
func ValidateContentHash(h string) error {
	if !strings.HasPrefix(h, HashPrefix) {
		return fmt.Errorf("content hash must start with %q, got %q", HashPrefix, h)
	}
	digest := strings.TrimPrefix(h, HashPrefix)
	if len(digest) != 64 {
		return fmt.Errorf("content hash digest must be 64 hex chars, got %d", len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return fmt.Errorf("content hash digest is not hex: %w", err)
	}
	if strings.ToLower(digest) != digest {
		return fmt.Errorf("content hash digest must be lowercase")
	}
	return nil
}

// HashMatches reports whether data hashes to the stored hash h.
func HashMatches(h string, data []byte) bool {
	return HashBytes(data) == h
}
