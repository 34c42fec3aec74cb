package service

import (
	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/pkg/crypto"
)

// MembershipIDGenerator draws PREFIX-YEAR-NNNNN codes.
// Uniqueness is enforced by the store; callers retry on collision.
type MembershipIDGenerator struct {
	prefix string
	clock  Clock
}

// NewMembershipIDGenerator creates a generator. An empty prefix uses the default.
func NewMembershipIDGenerator(prefix string, clock Clock) *MembershipIDGenerator {
	if prefix == "" {
		prefix = domain.DefaultMembershipPrefix
	}
	return &MembershipIDGenerator{prefix: prefix, clock: clock}
}

// Next returns a fresh candidate ID.
func (g *MembershipIDGenerator) Next() (string, error) {
	suffix, err := crypto.RandomInt(domain.MembershipSuffixMin, domain.MembershipSuffixMax)
	if err != nil {
		return "", err
	}
	return domain.FormatMembershipID(g.prefix, g.clock.now().Year(), suffix), nil
}

// Prefix returns the configured organisation prefix.
func (g *MembershipIDGenerator) Prefix() string {
	return g.prefix
}
