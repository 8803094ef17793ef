// Package taxonomy maps free-text hero affiliations onto canonical team
// names.
package taxonomy

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxPassthroughLen is the longest unmatched segment (in characters) kept
// verbatim.
const MaxPassthroughLen = 40

var (
	reDelimiters     = regexp.MustCompile(`[,;|/]`)
	reOpenParenTail  = regexp.MustCompile(`\([^)]*$`)
	reParenthetical  = regexp.MustCompile(`\([^)]*\)`)
	reTwoConnectives = regexp.MustCompile(`(?i)\b(of|the|and)\b.*\b(of|the|and)\b`)
)

// Outcome says what happened to a single segment.
type Outcome string

const (
	OutcomeEmpty       Outcome = "empty"
	OutcomeJunk        Outcome = "junk"
	OutcomeCanonical   Outcome = "canonical"
	OutcomePassthrough Outcome = "passthrough"
	OutcomeDropped     Outcome = "dropped"
)

// SegmentTrace describes how one delimited piece of an affiliation string
// was classified.
type SegmentTrace struct {
	Raw     string   `json:"raw"`
	Cleaned string   `json:"cleaned"`
	Outcome Outcome  `json:"outcome"`
	Teams   []string `json:"teams,omitempty"`
}

// Canonicalizer is immutable once built and safe for concurrent use.
type Canonicalizer struct {
	junk  []*regexp.Regexp
	rules []Rule
}

// New builds a Canonicalizer that owns a copy of table.
func New(table Table) *Canonicalizer {
	c := &Canonicalizer{
		junk:  make([]*regexp.Regexp, len(table.Junk)),
		rules: make([]Rule, len(table.Rules)),
	}
	copy(c.junk, table.Junk)
	copy(c.rules, table.Rules)
	return c
}

var (
	defaultOnce sync.Once
	defaultC    *Canonicalizer
)

// Default returns a shared Canonicalizer over the builtin table.
func Default() *Canonicalizer {
	defaultOnce.Do(func() {
		defaultC = New(BuiltinTable())
	})
	return defaultC
}

// Canonicalize is Default().Canonicalize.
func Canonicalize(raw []any) TeamSet {
	return Default().Canonicalize(raw)
}

// Rules returns a copy of the rule list in priority order.
func (c *Canonicalizer) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Canonicalize returns every canonical or passthrough team name found in
// raw. Entries that are not strings are ignored.
func (c *Canonicalizer) Canonicalize(raw []any) TeamSet {
	var out TeamSet
	for _, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		c.collect(&out, s)
	}
	return out
}

// CanonicalizeStrings is Canonicalize for string input.
func (c *Canonicalizer) CanonicalizeStrings(raw []string) TeamSet {
	var out TeamSet
	for _, s := range raw {
		c.collect(&out, s)
	}
	return out
}

// Trace classifies each segment of a single affiliation string.
func (c *Canonicalizer) Trace(raw string) []SegmentTrace {
	parts := Segments(raw)
	out := make([]SegmentTrace, 0, len(parts))
	for _, part := range parts {
		out = append(out, c.classify(part))
	}
	return out
}

func (c *Canonicalizer) collect(out *TeamSet, raw string) {
	for _, part := range Segments(raw) {
		tr := c.classify(part)
		for _, team := range tr.Teams {
			out.add(team)
		}
	}
}

func (c *Canonicalizer) classify(part string) SegmentTrace {
	tr := SegmentTrace{Raw: part}
	s := StripParens(part)
	tr.Cleaned = s
	if s == "" {
		tr.Outcome = OutcomeEmpty
		return tr
	}
	if c.isJunk(s) {
		tr.Outcome = OutcomeJunk
		return tr
	}

	for _, r := range c.rules {
		if r.Pattern.MatchString(s) {
			tr.Teams = append(tr.Teams, r.Canon)
		}
	}
	if len(tr.Teams) > 0 {
		tr.Outcome = OutcomeCanonical
		return tr
	}

	if LooksLikeName(s) {
		tr.Teams = []string{s}
		tr.Outcome = OutcomePassthrough
		return tr
	}
	tr.Outcome = OutcomeDropped
	return tr
}

func (c *Canonicalizer) isJunk(s string) bool {
	for _, re := range c.junk {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Segments splits raw on , ; | and / and returns the trimmed, non-empty
// pieces.
func Segments(raw string) []string {
	pieces := reDelimiters.Split(raw, -1)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StripParens removes parenthetical asides, including an unterminated one
// running to the end of the string.
func StripParens(s string) string {
	s = reOpenParenTail.ReplaceAllString(s, "")
	s = reParenthetical.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// LooksLikeName reports whether an unmatched segment may be kept as a team
// name: short, and not a sentence with two or more of "of", "the", "and".
//
// The connector check is a blunt heuristic and misfires on names such as
// "Sons of the Serpent". It is kept as-is for parity with existing data.
func LooksLikeName(s string) bool {
	return utf8.RuneCountInString(s) <= MaxPassthroughLen && !reTwoConnectives.MatchString(s)
}
