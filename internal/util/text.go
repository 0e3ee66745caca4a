package util

import (
	"regexp"
	"strings"
	"unicode"
)

var reSpaces = regexp.MustCompile(`\s+`)

// TitleCase lower-cases the input and re-capitalizes after word starts,
// apostrophes and hyphens, so "L'AQUILA" becomes "L'Aquila" and
// "REGGIO NELL'EMILIA" becomes "Reggio Nell'Emilia".
func TitleCase(input string) string {
	out := []rune(strings.ToLower(input))
	upperNext := true
	for i, r := range out {
		if upperNext && unicode.IsLetter(r) {
			out[i] = unicode.ToUpper(r)
		}
		switch r {
		case ' ', '\'', '-':
			upperNext = true
		default:
			upperNext = false
		}
	}
	return string(out)
}

// SanitizeValue flattens newlines and tabs to spaces, strips other control
// runes and commas, collapses space runs and trims. Quotes and apostrophes
// pass through untouched.
func SanitizeValue(input string) string {
	out := strings.Builder{}
	for _, r := range input {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			out.WriteRune(' ')
		case r == ',':
		case unicode.IsControl(r):
		default:
			out.WriteRune(r)
		}
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(out.String(), " "))
}

func StringPtr(s string) *string { return &s }

func BoolPtr(b bool) *bool { return &b }
