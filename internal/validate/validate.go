// Package validate normalizes and checks request fields.
package validate

import (
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var strict = bluemonday.StrictPolicy()

// maxDecode bounds how many layers of entity encoding Text peels off.
const maxDecode = 4

// Text trims s and strips any markup from it, including markup hidden behind
// entity encoding. Input still encoded after maxDecode rounds yields "".
func Text(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < maxDecode; i++ {
		// StrictPolicy escapes the text it keeps; stored values are plain text
		next := strings.TrimSpace(html.UnescapeString(strict.Sanitize(html.UnescapeString(s))))
		if next == s {
			return s
		}
		s = next
	}
	return ""
}

// Email returns the normalized address and whether it is a bare, valid address.
func Email(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return "", false
	}
	return s, true
}

// Date accepts YYYY-MM-DD and returns it in canonical form.
func Date(s string) (string, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return d.Format(DateLayout), true
}

// Clock accepts H:MM or HH:MM on a 24 hour clock and returns HH:MM.
func Clock(s string) (string, bool) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return t.Format(TimeLayout), true
}

// ID reports whether s is a well-formed record id.
func ID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
