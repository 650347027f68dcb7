package domain

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// PseudonymLength is the hex-encoded width of a SHA3-256 digest.
const PseudonymLength = 64

// Pseudonymize transforms a raw object identifier into its opaque form.
// Deterministic and one-way; never double-hashes. Identifiers may arrive
// already pseudonymized (replays, patches of stored records), so values that
// match the digest's output shape pass through unchanged.
func Pseudonymize(rawID string) string {
	if IsPseudonym(rawID) {
		return rawID
	}
	sum := sha3.Sum256([]byte(rawID))
	return hex.EncodeToString(sum[:])
}

// IsPseudonym reports whether a value is already in opaque form: exactly 64
// lowercase hex characters, the SHA3-256 output width. No raw identifier
// format in use (BSN, registration numbers) has this shape.
func IsPseudonym(s string) bool {
	if len(s) != PseudonymLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
