// Package sanitize makes accessibility strings safe for XML documents and for
// semicolon-delimited log records.
package sanitize

import "strings"

// Placeholder replaces every code point that may not appear in an XML document.
const Placeholder = '.'

// Escape tokens for characters that would break a semicolon-delimited record.
const (
	SemicolonToken = "<semicolon>"
	NewlineToken   = "<newline>"
)

var (
	escaper  = strings.NewReplacer(";", SemicolonToken, "\n", NewlineToken)
	restorer = strings.NewReplacer(SemicolonToken, ";", NewlineToken, "\n")
)

// Sanitize replaces XML-invalid code points one-for-one with Placeholder and
// escapes semicolons and newlines.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return escaper.Replace(StripInvalidXMLChars(text))
}

// Restore reverses the semicolon and newline escaping done by Sanitize.
// Replaced XML-invalid code points cannot be recovered.
func Restore(text string) string {
	return restorer.Replace(text)
}

// StripInvalidXMLChars replaces each XML-invalid code point with Placeholder.
// The rune count of the result equals the rune count of the input.
func StripInvalidXMLChars(text string) string {
	clean := true
	for _, r := range text {
		if invalidXMLRune(r) {
			clean = false
			break
		}
	}
	if clean {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if invalidXMLRune(r) {
			b.WriteRune(Placeholder)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// invalidXMLRune covers the restricted and discouraged characters of
// https://www.w3.org/TR/xml11/#charsets.
func invalidXMLRune(r rune) bool {
	switch {
	case r <= 0x8:
		return true
	case r == 0xB, r == 0xC:
		return true
	case r >= 0xE && r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x84:
		return true
	case r >= 0x86 && r <= 0x9F:
		return true
	case r >= 0xFDD0 && r <= 0xFDDF:
		return true
	}
	// U+nFFFE and U+nFFFF in every plane.
	return r&0xFFFE == 0xFFFE
}
