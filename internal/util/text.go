package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reDashes    = regexp.MustCompile(`[\x{002D}\x{2010}-\x{2015}\x{2212}\x{FE58}\x{FE63}\x{FF0D}_]+`)
	reSpaces    = regexp.MustCompile(`\s+`)
	reWordStart = regexp.MustCompile(`\b[a-z]`)
	reNonASCII  = regexp.MustCompile(`[^\x20-\x7E]`)
)

// NormalizeDisplay turns dash variants and underscores into spaces and
// collapses whitespace.
func NormalizeDisplay(input string) string {
	s := reDashes.ReplaceAllString(input, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TitleCase upper-cases the first letter of every word and leaves the rest
// alone, so "DC comics" stays "DC Comics".
func TitleCase(input string) string {
	return reWordStart.ReplaceAllStringFunc(NormalizeDisplay(input), strings.ToUpper)
}

// ToASCII folds accents, title-cases, and drops whatever is still outside
// printable ASCII.
func ToASCII(input string) string {
	s := TitleCase(FoldAccents(input))
	s = reNonASCII.ReplaceAllString(s, "")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// FoldAccents strips combining marks, so "señor" becomes "senor".
func FoldAccents(input string) string {
	// Chains hold buffers, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, input)
	if err != nil {
		return input
	}
	return out
}
