package taxonomy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var builtinRules []byte

// Rule maps every segment matching Pattern to Canon.
type Rule struct {
	Pattern *regexp.Regexp
	Canon   string
}

// Table is the configuration a Canonicalizer is built from. Junk patterns
// are tested in order before any rule; rules are all tested.
type Table struct {
	Junk  []*regexp.Regexp
	Rules []Rule
}

type tableFile struct {
	Junk  []string   `yaml:"junk"`
	Rules []ruleFile `yaml:"rules"`
}

type ruleFile struct {
	Pattern string `yaml:"pattern"`
	Canon   string `yaml:"canon"`
}

// BuiltinTable returns the Marvel and DC table shipped with the binary.
func BuiltinTable() Table {
	t, err := LoadTable(bytes.NewReader(builtinRules))
	if err != nil {
		panic(fmt.Sprintf("taxonomy: builtin rules: %v", err))
	}
	return t
}

// FromFile returns the default canonicalizer when extraPath is empty, and
// otherwise one built from the builtin table extended with the file's rules.
func FromFile(extraPath string) (*Canonicalizer, error) {
	if strings.TrimSpace(extraPath) == "" {
		return Default(), nil
	}
	extra, err := LoadTableFile(extraPath)
	if err != nil {
		return nil, err
	}
	return New(BuiltinTable().Extend(extra)), nil
}

func LoadTableFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	t, err := LoadTable(f)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadTable decodes a YAML rule table. Patterns are compiled
// case-insensitive.
func LoadTable(r io.Reader) (Table, error) {
	var raw tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Table{}, fmt.Errorf("decode rule table: %w", err)
	}

	t := Table{
		Junk:  make([]*regexp.Regexp, 0, len(raw.Junk)),
		Rules: make([]Rule, 0, len(raw.Rules)),
	}
	for i, expr := range raw.Junk {
		re, err := compile(expr)
		if err != nil {
			return Table{}, fmt.Errorf("junk[%d]: %w", i, err)
		}
		t.Junk = append(t.Junk, re)
	}
	for i, rf := range raw.Rules {
		canon := strings.TrimSpace(rf.Canon)
		if canon == "" {
			return Table{}, fmt.Errorf("rules[%d]: empty canon", i)
		}
		re, err := compile(rf.Pattern)
		if err != nil {
			return Table{}, fmt.Errorf("rules[%d] %q: %w", i, canon, err)
		}
		t.Rules = append(t.Rules, Rule{Pattern: re, Canon: canon})
	}
	return t, nil
}

// Extend returns a new table with other's junk patterns and rules appended.
func (t Table) Extend(other Table) Table {
	out := Table{
		Junk:  make([]*regexp.Regexp, 0, len(t.Junk)+len(other.Junk)),
		Rules: make([]Rule, 0, len(t.Rules)+len(other.Rules)),
	}
	out.Junk = append(append(out.Junk, t.Junk...), other.Junk...)
	out.Rules = append(append(out.Rules, t.Rules...), other.Rules...)
	return out
}

func compile(expr string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.New("empty pattern")
	}
	if !strings.HasPrefix(expr, "(?i)") {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}
