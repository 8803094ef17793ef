// Package export writes leaderboard, team roster and roster import
// spreadsheets.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"heroindex/internal"
	"heroindex/internal/directory"
	"heroindex/internal/roster"
)

func LeaderboardXLSX(entries []internal.LeaderboardEntry, outputPath string) error {
	headers := []string{"rank", "heroName", "firstName", "lastName", "email", "totalStats"}
	headers = append(headers, internal.UserStatNames...)

	return writeSheet(outputPath, headers, len(entries), func(i int, set func(col int, value any)) {
		e := entries[i]
		set(1, e.Rank)
		set(2, e.User.HeroName)
		set(3, e.User.FirstName)
		set(4, e.User.LastName)
		set(5, e.User.Email)
		set(6, e.TotalStats)
		for j, name := range internal.UserStatNames {
			set(7+j, optionalStat(e.User.Stats, name))
		}
	})
}

// TeamsXLSX writes one row per team membership, so a hero on several teams
// appears once per team.
func TeamsXLSX(groups []internal.TeamGroup, outputPath string) error {
	headers := []string{"team", "apiId", "name", "publisher", "alignment"}
	headers = append(headers, internal.StatKeys...)

	type row struct {
		team string
		hero internal.Hero
	}
	var rows []row
	for _, g := range groups {
		for _, h := range g.Heroes {
			rows = append(rows, row{team: g.Team, hero: h})
		}
	}

	return writeSheet(outputPath, headers, len(rows), func(i int, set func(col int, value any)) {
		r := rows[i]
		set(1, r.team)
		set(2, r.hero.APIID)
		set(3, r.hero.Name)
		set(4, directory.DisplayPublisher(r.hero))
		set(5, directory.DisplayAlignment(r.hero))
		for j, key := range internal.StatKeys {
			set(6+j, optionalStat(r.hero.PowerStats, key))
		}
	})
}

func writeSheet(outputPath string, headers []string, n int, fill func(i int, set func(col int, value any))) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i := 0; i < n; i++ {
		r := i + 2
		fill(i, func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		})
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func optionalStat(stats map[string]int, key string) any {
	v, ok := stats[key]
	if !ok {
		return ""
	}
	return v
}

// RosterXLSX writes a roster import report, one row per extracted line.
func RosterXLSX(report roster.Report, outputPath string) error {
	headers := []string{
		"line_no", "source", "raw_line", "hero_name", "affiliation",
		"match_status", "confidence", "match_reason",
		"hero_api_id", "hero_name_catalog", "teams",
		"candidate2_name", "candidate2_score",
	}

	return writeSheet(outputPath, headers, len(report.Results), func(i int, set func(col int, value any)) {
		r := report.Results[i]
		set(1, r.LineNo)
		set(2, string(r.Source))
		set(3, r.RawLine)
		set(4, r.HeroName)
		set(5, r.Affiliation)
		set(6, string(r.Match.Status))
		set(7, r.Match.Confidence)
		set(8, string(r.Match.Reason))
		if r.Match.Hero != nil {
			set(9, r.Match.Hero.APIID)
			set(10, r.Match.Hero.Name)
		}
		set(11, strings.Join(r.Teams, "; "))
		if len(r.Match.Candidates) > 1 {
			set(12, r.Match.Candidates[1].Name)
			set(13, r.Match.Candidates[1].Score)
		}
	})
}
