package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroindex/internal"
)

func names(heroes []internal.Hero) []string {
	out := make([]string, 0, len(heroes))
	for _, h := range heroes {
		out = append(out, h.Name)
	}
	return out
}

var roster = []internal.Hero{
	{APIID: 1, Name: "batman", PowerStats: map[string]int{"speed": 27}, Teams: []string{"Justice League", "Batman Family"}},
	{APIID: 2, Name: "Aquaman", PowerStats: map[string]int{"speed": 79}, Teams: []string{"Justice League"}},
	{APIID: 3, Name: "Bane", PowerStats: map[string]int{}},
	{APIID: 4, Name: "Catwoman", PowerStats: map[string]int{"speed": 27}, Teams: []string{"Batman Family"}},
}

func TestFilterByName(t *testing.T) {
	assert.Equal(t, []string{"batman", "Aquaman", "Catwoman"}, names(FilterByName(roster, " MAN ")))
	assert.Len(t, FilterByName(roster, "   "), len(roster))
	assert.Empty(t, FilterByName(roster, "joker"))
}

func TestFilterByPublisherAlignment(t *testing.T) {
	heroes := []internal.Hero{
		{Name: "Batman", Publisher: "DC Comics", Alignment: "good"},
		{Name: "Joker", Publisher: "DC Comics", Alignment: "bad"},
		{Name: "Loki", Publisher: "Marvel Comics", Alignment: "bad"},
	}

	cases := []struct {
		publisher string
		alignment string
		want      []string
	}{
		{publisher: "dc comics", alignment: "BAD", want: []string{"Joker"}},
		{alignment: "bad", want: []string{"Joker", "Loki"}},
		{publisher: "Marvel Comics", want: []string{"Loki"}},
		{want: []string{"Batman", "Joker", "Loki"}},
		{publisher: "Image", want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.publisher+"/"+tc.alignment, func(t *testing.T) {
			assert.Equal(t, tc.want, names(FilterByPublisherAlignment(heroes, tc.publisher, tc.alignment)))
		})
	}
}

func TestSort(t *testing.T) {
	cases := []struct {
		name string
		key  string
		dir  string
		want []string
	}{
		{name: "name asc ignores case", key: "name", dir: "asc", want: []string{"Aquaman", "Bane", "batman", "Catwoman"}},
		{name: "name desc", key: "name", dir: "desc", want: []string{"Catwoman", "batman", "Bane", "Aquaman"}},
		{name: "missing stat first asc", key: "speed", dir: "asc", want: []string{"Bane", "batman", "Catwoman", "Aquaman"}},
		{name: "missing stat last desc", key: "speed", dir: "desc", want: []string{"Aquaman", "batman", "Catwoman", "Bane"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sort(roster, tc.key, tc.dir)
			assert.Equal(t, tc.want, names(got))
		})
	}

	assert.Equal(t, "batman", roster[0].Name, "input is not reordered")
}

func TestParseSortKey(t *testing.T) {
	key, dir, err := ParseSortKey("", "")
	require.NoError(t, err)
	assert.Equal(t, "name", key)
	assert.Equal(t, "asc", dir)

	key, dir, err = ParseSortKey("Strength", "DESC")
	require.NoError(t, err)
	assert.Equal(t, "strength", key)
	assert.Equal(t, "desc", dir)

	_, _, err = ParseSortKey("height", "asc")
	assert.Error(t, err)
	_, _, err = ParseSortKey("name", "sideways")
	assert.Error(t, err)
}

func TestGroupByTeam(t *testing.T) {
	groups := GroupByTeam(roster)
	require.Len(t, groups, 3)

	assert.Equal(t, "Justice League", groups[0].Team)
	assert.Equal(t, []string{"batman", "Aquaman"}, names(groups[0].Heroes))
	assert.Equal(t, "Batman Family", groups[1].Team)
	assert.Equal(t, []string{"batman", "Catwoman"}, names(groups[1].Heroes))
	assert.Equal(t, internal.Unaffiliated, groups[2].Team)
	assert.Equal(t, []string{"Bane"}, names(groups[2].Heroes))

	assert.Empty(t, GroupByTeam(nil))
}

func TestDisplayFields(t *testing.T) {
	cases := []struct {
		hero      internal.Hero
		publisher string
		alignment string
	}{
		{hero: internal.Hero{Publisher: "Marvel Comics", Alignment: "good"}, publisher: "Marvel Comics", alignment: "Good"},
		{hero: internal.Hero{Publisher: "Éditions Dupuis", Alignment: "neutral"}, publisher: "Editions Dupuis", alignment: "Neutral"},
		{hero: internal.Hero{Publisher: "", Alignment: " "}, publisher: "Unknown", alignment: "N/A"},
	}

	for _, tc := range cases {
		t.Run(tc.publisher, func(t *testing.T) {
			assert.Equal(t, tc.publisher, DisplayPublisher(tc.hero))
			assert.Equal(t, tc.alignment, DisplayAlignment(tc.hero))
		})
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Showing 3 of 10 | Sorted by Name (asc)", Summary(3, 10, "name", "asc"))
	assert.Equal(t, "Showing 1 of 1 | Sorted by Speed (desc)", Summary(1, 1, "speed", "desc"))
}
