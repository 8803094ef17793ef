// Package directory filters, sorts and groups hero lists that have already
// been loaded from storage.
package directory

import (
	"fmt"
	"slices"
	"strings"

	"heroindex/internal"
	"heroindex/internal/util"
)

// FilterByName keeps heroes whose name contains term, ignoring case.
// A blank term keeps everything.
func FilterByName(heroes []internal.Hero, term string) []internal.Hero {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return heroes
	}
	out := make([]internal.Hero, 0, len(heroes))
	for _, h := range heroes {
		if strings.Contains(strings.ToLower(h.Name), term) {
			out = append(out, h)
		}
	}
	return out
}

// FilterByPublisherAlignment keeps heroes whose publisher and alignment
// equal the given values, ignoring case. Blank values match anything.
func FilterByPublisherAlignment(heroes []internal.Hero, publisher, alignment string) []internal.Hero {
	publisher = strings.TrimSpace(publisher)
	alignment = strings.TrimSpace(alignment)
	if publisher == "" && alignment == "" {
		return heroes
	}
	out := make([]internal.Hero, 0, len(heroes))
	for _, h := range heroes {
		if publisher != "" && !strings.EqualFold(h.Publisher, publisher) {
			continue
		}
		if alignment != "" && !strings.EqualFold(h.Alignment, alignment) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// ParseSortKey validates a sort key and direction. Empty values fall back
// to name ascending.
func ParseSortKey(key, dir string) (string, string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	dir = strings.ToLower(strings.TrimSpace(dir))
	if key == "" {
		key = internal.SortByName
	}
	if dir == "" {
		dir = internal.SortAsc
	}
	if key != internal.SortByName && !slices.Contains(internal.StatKeys, key) {
		return "", "", fmt.Errorf("unknown sort key %q", key)
	}
	if dir != internal.SortAsc && dir != internal.SortDesc {
		return "", "", fmt.Errorf("unknown sort direction %q", dir)
	}
	return key, dir, nil
}

// Sort returns a sorted copy. Names compare case-insensitively; a missing
// stat sorts below every known value. Equal keys keep their input order.
func Sort(heroes []internal.Hero, key, dir string) []internal.Hero {
	out := slices.Clone(heroes)
	desc := dir == internal.SortDesc

	cmp := func(a, b internal.Hero) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	if key != internal.SortByName {
		cmp = func(a, b internal.Hero) int {
			av, aok := a.Stat(key)
			bv, bok := b.Stat(key)
			switch {
			case !aok && !bok:
				return 0
			case !aok:
				return -1
			case !bok:
				return 1
			}
			return av - bv
		}
	}

	slices.SortStableFunc(out, func(a, b internal.Hero) int {
		if desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out
}

// GroupByTeam buckets heroes by canonical team. Heroes without teams land
// in Unaffiliated. Groups appear in the order their team is first seen.
func GroupByTeam(heroes []internal.Hero) []internal.TeamGroup {
	var groups []internal.TeamGroup
	pos := map[string]int{}
	for _, h := range heroes {
		teams := h.Teams
		if len(teams) == 0 {
			teams = []string{internal.Unaffiliated}
		}
		for _, team := range teams {
			i, ok := pos[team]
			if !ok {
				i = len(groups)
				pos[team] = i
				groups = append(groups, internal.TeamGroup{Team: team})
			}
			groups[i].Heroes = append(groups[i].Heroes, h)
		}
	}
	return groups
}

func DisplayPublisher(h internal.Hero) string {
	if s := util.ToASCII(h.Publisher); s != "" {
		return s
	}
	return "Unknown"
}

func DisplayAlignment(h internal.Hero) string {
	if s := util.ToASCII(h.Alignment); s != "" {
		return s
	}
	return "N/A"
}

// Summary describes a listing, e.g. "Showing 3 of 10 | Sorted by Speed (desc)".
func Summary(shown, total int, key, dir string) string {
	label := "Name"
	if key != internal.SortByName {
		label = util.TitleCase(key)
	}
	return fmt.Sprintf("Showing %d of %d | Sorted by %s (%s)", shown, total, label, dir)
}
