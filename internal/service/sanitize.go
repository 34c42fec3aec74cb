package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textSanitizer strips markup from free-text fields before they are stored.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean removes all HTML and collapses the result to plain text.
// bluemonday escapes entities in its output, which would turn "O'Brien"
// into "O&#39;Brien", so the entities are decoded again afterwards.
func (s textSanitizer) Clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}
