package util

import (
	"strings"
	"unicode"
)

// Slug converts a PascalCase task name (e.g. "RestingEyesOpen") to a
// lowercase hyphenated form ("resting-eyes-open") suitable for branch
// names. Characters outside letters, digits, hyphens and underscores are
// dropped.
func Slug(name string) string {
	var b strings.Builder
	var prev rune

	for i, r := range name {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		case r == '_' || r == '-' || r == ' ':
			b.WriteByte('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
		prev = r
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
