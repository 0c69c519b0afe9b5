package domain

import "strings"

// NormalizeEmail lowercases and trims an email for duplicate grouping.
// An empty result means the record has no usable email key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything but digits so formatting differences
// ("+84 90...", "090-...") collapse onto one key.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
