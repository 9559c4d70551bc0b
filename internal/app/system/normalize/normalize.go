// Package normalize provides canonical forms for user-entered values before
// they are validated or stored.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace; case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Digits strips everything except ASCII digits. Used for phone and
// WhatsApp numbers before the 10-digit check.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegimentalNumber trims and uppercases a regimental number.
func RegimentalNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
