package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"heroindex/internal"
	"heroindex/internal/roster"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func TestLeaderboardXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "leaderboard.xlsx")
	entries := []internal.LeaderboardEntry{
		{Rank: 1, TotalStats: 180, User: internal.UserProfile{HeroName: "Omega", Email: "o@example.com", Stats: map[string]int{"Intelligence": 90, "Strength": 90}}},
		{Rank: 2, TotalStats: 0, User: internal.UserProfile{HeroName: "Mu"}},
	}

	require.NoError(t, LeaderboardXLSX(entries, path))

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"rank", "heroName", "firstName", "lastName", "email", "totalStats", "Intelligence", "Strength", "Speed", "Durability", "Power", "Combat"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Omega", rows[1][1])
	assert.Equal(t, "90", rows[1][6])
	assert.Equal(t, "90", rows[1][7])
	assert.Equal(t, "Mu", rows[2][1])
}

func TestTeamsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.xlsx")
	batman := internal.Hero{APIID: 70, Name: "Batman", Publisher: "DC Comics", Alignment: "good", PowerStats: map[string]int{"combat": 100}}
	groups := []internal.TeamGroup{
		{Team: "Justice League", Heroes: []internal.Hero{batman}},
		{Team: "Batman Family", Heroes: []internal.Hero{batman}},
		{Team: internal.Unaffiliated, Heroes: []internal.Hero{{APIID: 9, Name: "Loner"}}},
	}

	require.NoError(t, TeamsXLSX(groups, path))

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"team", "apiId", "name", "publisher", "alignment", "combat", "durability", "intelligence", "power", "speed", "strength"}, rows[0])
	assert.Equal(t, []string{"Justice League", "70", "Batman", "DC Comics", "Good", "100"}, rows[1][:6])
	assert.Equal(t, "Batman Family", rows[2][0])
	assert.Equal(t, []string{"Unaffiliated", "9", "Loner", "Unknown", "N/A"}, rows[3][:5])
}

func TestRosterXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster", "import.xlsx")
	storm := internal.Hero{APIID: 638, Name: "Storm"}
	report := roster.Report{Results: []roster.Result{
		{
			Row:   roster.Row{LineNo: 1, Source: roster.SourceXLSX, RawLine: "Storm | X-Men", HeroName: "Storm", Affiliation: "X-Men"},
			Match: roster.Match{Status: roster.MatchOK, Confidence: 0.99, Reason: roster.ReasonExact, Hero: &storm},
			Teams: []string{"X-Men"},
		},
		{
			Row:   roster.Row{LineNo: 2, Source: roster.SourceText, RawLine: "Kite Man: Legion of Doom", HeroName: "Kite Man", Affiliation: "Legion of Doom"},
			Match: roster.Match{Status: roster.MatchNotFound, Reason: roster.ReasonNone},
			Teams: []string{"Legion of Doom"},
		},
	}}

	require.NoError(t, RosterXLSX(report, path))

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "match_status", rows[0][5])
	assert.Equal(t, []string{"1", "xlsx", "Storm | X-Men", "Storm", "X-Men", "ok"}, rows[1][:6])
	assert.Equal(t, "638", rows[1][8])
	assert.Equal(t, "X-Men", rows[1][10])
	assert.Equal(t, "not_found", rows[2][5])
	assert.Equal(t, "Legion of Doom", rows[2][10])
}
