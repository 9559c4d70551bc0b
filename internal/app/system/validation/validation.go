// Package validation holds the field checks shared by forms and engines.
// Checks accumulate into a field→message map so a form can show every
// problem at once.
package validation

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\d{10}$`)
)

// Fields accumulates validation problems keyed by field name.
type Fields map[string]string

// Require adds an error when value is blank.
func (f Fields) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "This field is required."
	}
}

// Email adds an error when value is present but not a plausible address.
func (f Fields) Email(field, value string) {
	if value != "" && !emailRe.MatchString(value) {
		f[field] = "Enter a valid email address."
	}
}

// Phone adds an error when value is present but not exactly 10 digits.
func (f Fields) Phone(field, value string) {
	if value != "" && !phoneRe.MatchString(value) {
		f[field] = "Phone number must be exactly 10 digits."
	}
}

// Year adds an error when the training year is outside 1..3.
func (f Fields) Year(field string, year int) {
	if year < 1 || year > 3 {
		f[field] = "Year must be 1, 2, or 3."
	}
}

// DateOrder adds an error unless end is strictly after start.
func (f Fields) DateOrder(field string, start, end time.Time) {
	if !end.After(start) {
		f[field] = "End date must be after the start date."
	}
}

// MaxLen adds an error when value exceeds n characters.
func (f Fields) MaxLen(field, value string, n int) {
	if len(value) > n {
		f[field] = "Too long."
	}
}

// OK reports whether no check failed.
func (f Fields) OK() bool { return len(f) == 0 }
