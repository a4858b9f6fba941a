// Package util provides shared string helpers used across the codebase.
package util

import (
	"strings"
	"unicode"
)

// TitleCase capitalizes the first letter of each space-separated word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// splitWords breaks an identifier or name into lowercase word parts.
// It splits on spaces, hyphens, underscores and lower-to-upper case boundaries.
func splitWords(s string) []string {
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	prevLower := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			flush()
			prevLower = false
		case unicode.IsUpper(r) && prevLower:
			flush()
			cur = append(cur, r)
			prevLower = false
		default:
			cur = append(cur, r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	flush()
	return words
}

// SnakeCase converts a name to snake_case.
func SnakeCase(s string) string {
	return strings.Join(splitWords(s), "_")
}

// PascalCase converts a name to PascalCase.
func PascalCase(s string) string {
	words := splitWords(s)
	for i := range words {
		words[i] = capitalize(words[i])
	}
	return strings.Join(words, "")
}

// KebabCase converts a name to kebab-case.
func KebabCase(s string) string {
	return strings.Join(splitWords(s), "-")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// SanitizeIdentifier replaces characters that are not valid in generated code
// identifiers with underscores.
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsDigit(r) && i > 0:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
