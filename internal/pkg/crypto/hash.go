package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSHA256 computes the hex SHA-256 hash of a byte slice.
func ComputeSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashToken returns the storage form of a bearer token.
func HashToken(token string) string {
	return ComputeSHA256([]byte(token))
}

// TokenFingerprint returns a short, non-reversible prefix of the token hash
// that is safe to put in logs.
func TokenFingerprint(token string) string {
	return HashToken(token)[:12]
}

// ValidateSHA256 validates that a string is a valid SHA-256 hex hash.
func ValidateSHA256(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
