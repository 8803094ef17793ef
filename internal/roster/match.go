package roster

import (
	"sort"
	"strings"

	"heroindex/internal"
	"heroindex/internal/config"
	"heroindex/internal/util"
)

type MatchStatus string

const (
	MatchOK       MatchStatus = "ok"
	MatchReview   MatchStatus = "review"
	MatchNotFound MatchStatus = "not_found"
)

type MatchReason string

const (
	ReasonExact MatchReason = "exact_name"
	ReasonFuzzy MatchReason = "fuzzy_name"
	ReasonNone  MatchReason = "none"
)

type Candidate struct {
	APIID int     `json:"apiId"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type Match struct {
	Status     MatchStatus    `json:"status"`
	Confidence float64        `json:"confidence"`
	Reason     MatchReason    `json:"reason"`
	Hero       *internal.Hero `json:"hero,omitempty"`
	Candidates []Candidate    `json:"candidates"`
}

// Matcher resolves free-text hero names against the stored catalog.
type Matcher struct {
	cfg       config.Config
	byID      map[int]internal.Hero
	byName    map[string][]internal.Hero
	normNames map[int]string
}

func NewMatcher(cfg config.Config, heroes []internal.Hero) *Matcher {
	m := &Matcher{
		cfg:       cfg,
		byID:      make(map[int]internal.Hero, len(heroes)),
		byName:    map[string][]internal.Hero{},
		normNames: make(map[int]string, len(heroes)),
	}
	for _, h := range heroes {
		key := normalizeName(h.Name)
		m.byID[h.APIID] = h
		m.byName[key] = append(m.byName[key], h)
		m.normNames[h.APIID] = key
	}
	return m
}

func (m *Matcher) Match(name string) Match {
	query := normalizeName(name)
	if query == "" {
		return Match{Status: MatchNotFound, Reason: ReasonNone, Candidates: []Candidate{}}
	}

	exact := m.byName[query]
	if len(exact) == 1 {
		h := exact[0]
		return Match{
			Status:     MatchOK,
			Confidence: 0.99,
			Reason:     ReasonExact,
			Hero:       &h,
			Candidates: []Candidate{{APIID: h.APIID, Name: h.Name, Score: 0.99}},
		}
	}
	if len(exact) > 1 {
		out := make([]Candidate, 0, len(exact))
		for _, h := range exact {
			out = append(out, Candidate{APIID: h.APIID, Name: h.Name, Score: 0.8})
		}
		return Match{Status: MatchReview, Confidence: 0.8, Reason: ReasonExact, Candidates: limit(out)}
	}

	candidates := m.rankCandidates(query)
	if len(candidates) == 0 {
		return Match{Status: MatchNotFound, Reason: ReasonNone, Candidates: []Candidate{}}
	}

	top := candidates[0]
	gap := top.Score
	if len(candidates) > 1 {
		gap = top.Score - candidates[1].Score
	}
	best := m.byID[top.APIID]

	switch {
	case top.Score >= m.cfg.RosterMatchOKThreshold && gap >= m.cfg.RosterMatchGapThreshold:
		return Match{Status: MatchOK, Confidence: top.Score, Reason: ReasonFuzzy, Hero: &best, Candidates: candidates}
	case top.Score >= m.cfg.RosterMatchReviewThreshold:
		return Match{Status: MatchReview, Confidence: top.Score, Reason: ReasonFuzzy, Hero: &best, Candidates: candidates}
	default:
		return Match{Status: MatchNotFound, Confidence: top.Score, Reason: ReasonNone, Candidates: candidates}
	}
}

func (m *Matcher) rankCandidates(query string) []Candidate {
	out := make([]Candidate, 0, len(m.byID))
	for id, norm := range m.normNames {
		score := DiceCoefficient(query, norm)
		if score == 0 {
			continue
		}
		out = append(out, Candidate{APIID: id, Name: m.byID[id].Name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].APIID < out[j].APIID
	})
	return limit(out)
}

func limit(c []Candidate) []Candidate {
	if len(c) > 5 {
		return c[:5]
	}
	return c
}

// normalizeName folds case, accents and punctuation so "Spider-Man" and
// "spider man" compare equal.
func normalizeName(name string) string {
	s := strings.ToLower(util.FoldAccents(util.NormalizeDisplay(name)))
	s = strings.Map(func(r rune) rune {
		if r == '.' || r == '\'' {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// DiceCoefficient scores two strings by shared character bigrams, from 0
// (nothing shared) to 1 (identical).
func DiceCoefficient(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ab, bb := bigrams(a), bigrams(b)
	if len(ab) == 0 || len(bb) == 0 {
		return 0
	}

	counts := map[string]int{}
	for _, g := range ab {
		counts[g]++
	}
	shared := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ab)+len(bb))
}

func bigrams(s string) []string {
	r := []rune(s)
	if len(r) < 2 {
		return nil
	}
	out := make([]string, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		out = append(out, string(r[i:i+2]))
	}
	return out
}
