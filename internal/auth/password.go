package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch indicates the presented secret does not match the hash.
var ErrPasswordMismatch = errors.New("password does not match")

// BcryptHasher hashes and verifies account secrets.
type BcryptHasher struct {
	cost      int
	dummyHash []byte
}

// NewBcryptHasher creates a hasher with the given work factor.
// A dummy hash is prepared so lookups of unknown accounts can spend the same
// time as real comparisons.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("membership-dummy-secret"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &BcryptHasher{cost: cost, dummyHash: dummy}, nil
}

// Hash returns the bcrypt hash of secret.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares secret with hash.
func (h *BcryptHasher) Verify(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// VerifyDummy burns one comparison against the dummy hash. Always fails.
func (h *BcryptHasher) VerifyDummy(secret string) error {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(secret))
	return ErrPasswordMismatch
}
