package domain

import (
	"fmt"
	"regexp"
)

// DefaultMembershipPrefix is the organisation code at the start of every membership ID.
const DefaultMembershipPrefix = "SOCRP"

// Membership suffix bounds (inclusive). Always five digits.
const (
	MembershipSuffixMin = 10000
	MembershipSuffixMax = 99999
)

var membershipIDPattern = regexp.MustCompile(`^([A-Z0-9]+)-(\d{4})-(\d{5})$`)

// FormatMembershipID builds PREFIX-YEAR-NNNNN.
func FormatMembershipID(prefix string, year, suffix int) string {
	return fmt.Sprintf("%s-%04d-%05d", prefix, year, suffix)
}

// IsValidMembershipID reports whether id has the PREFIX-YEAR-NNNNN shape
// with the given prefix.
func IsValidMembershipID(prefix, id string) bool {
	m := membershipIDPattern.FindStringSubmatch(id)
	return m != nil && m[1] == prefix
}
