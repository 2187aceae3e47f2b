// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strings"
	"unicode/utf8"
)

// FirstLine returns s up to (not including) the first line break. CRLF and
// lone CR both count as breaks.
//
// Example:
//
//	utils.FirstLine("Hello\nWorld")   // "Hello"
//	utils.FirstLine("Hello\r\nWorld") // "Hello"
func FirstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// TruncateRunes cuts s to at most n runes and reports whether anything was
// removed. n <= 0 yields "".
func TruncateRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
