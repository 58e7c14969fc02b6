package postgres

import (
	"strings"
	"unicode"
)

// Escape quotes s as a SQL string literal.
// Control characters are dropped, single quotes are doubled, and a value
// containing backslashes is emitted as an E-prefixed literal with backslashes doubled,
// so the result is valid under either standard_conforming_strings setting.
func Escape(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	s = strings.ReplaceAll(s, `'`, `''`)
	if strings.Contains(s, `\`) {
		return `E'` + strings.ReplaceAll(s, `\`, `\\`) + `'`
	}
	return `'` + s + `'`
}
