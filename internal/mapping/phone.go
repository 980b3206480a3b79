package mapping

import (
	"regexp"
	"strings"
)

// PhoneSanitizer normalizes phone numbers, e.g. to E.164.
type PhoneSanitizer interface {
	SanitizePhone(raw string) string
}

var phoneReject = regexp.MustCompile(`[^0-9+\-()\s]`)

// SanitizePhone keeps digits, '+', '-', parentheses and whitespace.
func SanitizePhone(raw string) string {
	return strings.TrimSpace(phoneReject.ReplaceAllString(raw, ""))
}
