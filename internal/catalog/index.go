package catalog

import (
	"slices"

	"heroindex/internal"
)

type Index struct {
	ByID   map[int]internal.Hero
	ByTeam map[string][]int
}

func BuildIndex(heroes []internal.Hero) *Index {
	idx := &Index{
		ByID:   map[int]internal.Hero{},
		ByTeam: map[string][]int{},
	}
	for _, h := range heroes {
		idx.ByID[h.APIID] = h
		for _, team := range h.Teams {
			idx.ByTeam[team] = append(idx.ByTeam[team], h.APIID)
		}
	}
	return idx
}

// SyncDiff counts how a fresh fetch differs from what was stored.
type SyncDiff struct {
	Added        int
	TeamsChanged int
	Unchanged    int
}

func (idx *Index) Diff(fresh []internal.Hero) SyncDiff {
	var d SyncDiff
	for _, h := range fresh {
		prev, ok := idx.ByID[h.APIID]
		switch {
		case !ok:
			d.Added++
		case !sameTeams(prev.Teams, h.Teams):
			d.TeamsChanged++
		default:
			d.Unchanged++
		}
	}
	return d
}

func sameTeams(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
