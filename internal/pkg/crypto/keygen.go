// Package crypto provides token and random-number helpers for the membership service.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// ShareTokenBytes is the entropy of a share link token (128 bits).
const ShareTokenBytes = 16

// GenerateToken returns n random bytes encoded as unpadded base64url.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateShareToken returns a fresh 128-bit share link token.
func GenerateShareToken() (string, error) {
	return GenerateToken(ShareTokenBytes)
}

// RandomInt returns a uniformly distributed integer in [min, max].
func RandomInt(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return min + int(n.Int64()), nil
}
