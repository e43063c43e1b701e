package util

import (
	"strings"
	"unicode"
)

// SanitizeHeader strips control characters, CR and LF included, so a value
// taken from an event or a profile cannot inject extra mail headers.
func SanitizeHeader(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ValueOr returns s, or fallback when s is empty.
func ValueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
