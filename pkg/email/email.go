// Package email derives display names from email addresses for registrations
// that omit them.
package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail guesses a first and last name from the local part of an
// address. "ola.nordmann@x" becomes ("Ola", "Nordmann"); when the local part
// has a single segment the last name falls back to "User".
func DeriveNameFromEmail(address string) (first, last string) {
	local := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		local = address[:at]
	}

	segments := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(segments) == 0 {
		return "User", "User"
	}

	first = capitalize(segments[0])
	last = "User"
	if len(segments) > 1 {
		last = capitalize(segments[len(segments)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
