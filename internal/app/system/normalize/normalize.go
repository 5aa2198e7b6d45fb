// Package normalize canonicalizes user-supplied identity fields before they
// are stored or compared.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses internal whitespace, preserving case.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username derives a handle from an email's local part: lowercase letters,
// digits, '.' and '_' are kept, a +tag and everything else is dropped.
func Username(email string) string {
	local, _, _ := strings.Cut(Email(email), "@")
	local, _, _ = strings.Cut(local, "+")
	var b strings.Builder
	for _, r := range local {
		if r == '.' || r == '_' || unicode.IsDigit(r) || (r >= 'a' && r <= 'z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
