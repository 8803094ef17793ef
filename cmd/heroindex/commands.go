package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"heroindex/internal"
	"heroindex/internal/catalog"
	"heroindex/internal/connectors"
	imapconn "heroindex/internal/connectors/imap"
	"heroindex/internal/directory"
	"heroindex/internal/export"
	"heroindex/internal/notes"
	"heroindex/internal/roster"
	"heroindex/internal/users"
)

var catalogSyncCmd = &cobra.Command{
	Use:   "catalog:sync",
	Short: "Fetch the hero catalog and store canonical teams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetInt("id")
		db, err := a.store()
		if err != nil {
			return err
		}
		svc := catalog.NewSyncService(db, a.cfg, a.canon, a.logger)

		if id > 0 {
			hero, err := svc.SyncHero(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %s teams=%s\n", hero.Name, strings.Join(hero.Teams, ", "))
			return nil
		}

		res, err := svc.Sync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sync complete: fetched=%d added=%d teamsChanged=%d unchanged=%d\n",
			res.Fetched, res.Added, res.TeamsChanged, res.Unchanged)
		return nil
	},
}

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize [affiliation...]",
	Short: "Canonicalize affiliation text from arguments or stdin lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		explain, _ := cmd.Flags().GetBool("explain")
		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()

		inputs := args
		if len(inputs) == 0 {
			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				inputs = append(inputs, sc.Text())
			}
			if err := sc.Err(); err != nil {
				return err
			}
		}

		if explain {
			for _, raw := range inputs {
				for _, tr := range a.canon.Trace(raw) {
					fmt.Fprintf(out, "%-12s %q -> %q %s\n", tr.Outcome, tr.Raw, tr.Cleaned, strings.Join(tr.Teams, ", "))
				}
			}
			return nil
		}

		teams := a.canon.CanonicalizeStrings(inputs).Sorted()
		if asJSON {
			return json.NewEncoder(out).Encode(teams)
		}
		for _, t := range teams {
			fmt.Fprintln(out, t)
		}
		return nil
	},
}

var heroesCmd = &cobra.Command{
	Use:   "heroes",
	Short: "List stored heroes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		term, _ := cmd.Flags().GetString("q")
		sortKey, _ := cmd.Flags().GetString("sort")
		sortDir, _ := cmd.Flags().GetString("dir")
		key, dir, err := directory.ParseSortKey(sortKey, sortDir)
		if err != nil {
			return err
		}

		db, err := a.store()
		if err != nil {
			return err
		}
		all, err := db.ListAllHeroes(a.cfg.HeroBatchSize)
		if err != nil {
			return err
		}

		heroes := directory.Sort(directory.FilterByName(all, term), key, dir)
		out := cmd.OutOrStdout()
		for _, h := range heroes {
			fmt.Fprintf(out, "%5d  %-28s %-18s %-8s %s\n", h.APIID, h.Name, directory.DisplayPublisher(h), directory.DisplayAlignment(h), statLine(h))
		}
		fmt.Fprintln(out, directory.Summary(len(heroes), len(all), key, dir))
		return nil
	},
}

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "Group stored heroes by canonical team",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := teamGroups(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, g := range groups {
			fmt.Fprintf(out, "%s (%d)\n", g.Team, len(g.Heroes))
			for _, h := range g.Heroes {
				fmt.Fprintf(out, "  %s\n", h.Name)
			}
		}
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank users by total stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := leaderboard(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			name := e.User.HeroName
			if name == "" {
				name = "Unknown"
			}
			fmt.Fprintf(out, "%3d  %-24s %4d\n", e.Rank, name, e.TotalStats)
		}
		return nil
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "notes:add",
	Short: "Add a note on a hero",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetString("uid")
		hero, _ := cmd.Flags().GetString("hero")
		title, _ := cmd.Flags().GetString("title")
		desc, _ := cmd.Flags().GetString("desc")

		svc, err := notesService()
		if err != nil {
			return err
		}
		note, err := svc.Add(uid, hero, title, desc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "note %s added\n", note.ID)
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "notes:list",
	Short: "List a user's notes, optionally for one hero",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetString("uid")
		hero, _ := cmd.Flags().GetString("hero")

		svc, err := notesService()
		if err != nil {
			return err
		}
		list, err := svc.ListByHero(uid, hero)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, n := range list {
			fmt.Fprintf(out, "%s  hero=%s  %s  %s\n", n.ID, n.HeroAPIID, n.Title, n.Description)
		}
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "notes:delete",
	Short: "Delete a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetString("uid")
		id, _ := cmd.Flags().GetString("id")

		svc, err := notesService()
		if err != nil {
			return err
		}
		if err := svc.Delete(uid, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "note %s deleted\n", id)
		return nil
	},
}

var usersSeedCmd = &cobra.Command{
	Use:   "users:seed",
	Short: "Create demo users with rolled stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		seed, _ := cmd.Flags().GetInt64("seed")

		db, err := a.store()
		if err != nil {
			return err
		}
		created, err := users.NewService(db, a.logger).Seed(count, seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users\n", len(created))
		return nil
	},
}

var exportLeaderboardCmd = &cobra.Command{
	Use:   "export:leaderboard",
	Short: "Write the leaderboard to an xlsx file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := leaderboard(cmd)
		if err != nil {
			return err
		}
		path := outputPath(cmd, "leaderboard.xlsx")
		if err := export.LeaderboardXLSX(entries, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(entries), path)
		return nil
	},
}

var exportTeamsCmd = &cobra.Command{
	Use:   "export:teams",
	Short: "Write the team roster to an xlsx file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := teamGroups(cmd)
		if err != nil {
			return err
		}
		path := outputPath(cmd, "teams.xlsx")
		if err := export.TeamsXLSX(groups, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d teams to %s\n", len(groups), path)
		return nil
	},
}

var rosterImportCmd = &cobra.Command{
	Use:   "roster:import",
	Short: "Match a roster file against the catalog and canonicalize its affiliations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		db, err := a.store()
		if err != nil {
			return err
		}
		report, err := roster.NewService(db, a.cfg, a.canon, a.logger).Import(file)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range report.Results {
			fmt.Fprintf(out, "%3d  %-9s %-24s %s\n", r.LineNo, r.Match.Status, r.HeroName, strings.Join(r.Teams, ", "))
		}
		fmt.Fprintf(out, "ok=%d review=%d notFound=%d\n", report.OK, report.Review, report.NotFound)

		if path, _ := cmd.Flags().GetString("out"); strings.TrimSpace(path) != "" {
			if err := export.RosterXLSX(report, path); err != nil {
				return err
			}
			fmt.Fprintf(out, "exported %d rows to %s\n", len(report.Results), path)
		}
		return nil
	},
}

var rosterFetchCmd = &cobra.Command{
	Use:   "roster:fetch",
	Short: "Import unseen roster emails from the IMAP mailbox",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := imapconn.NewConnector(a.cfg)
		if err != nil {
			return err
		}
		db, err := a.store()
		if err != nil {
			return err
		}
		mailbox, _ := cmd.Flags().GetString("mailbox")
		if strings.TrimSpace(mailbox) == "" {
			mailbox = a.cfg.IMAPMailbox
		}
		max, _ := cmd.Flags().GetInt("max")
		if max <= 0 {
			max = a.cfg.IMAPFetchMax
		}

		importer := roster.NewService(db, a.cfg, a.canon, a.logger)
		svc := connectors.NewFetchService(db, filepath.Join(a.cfg.OutputDir, "mail"), conn, importer, a.logger)
		res, err := svc.FetchAndImport(mailbox, max)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, report := range res.Imported {
			fmt.Fprintf(out, "%s: ok=%d review=%d notFound=%d\n", filepath.Base(report.Path), report.OK, report.Review, report.NotFound)
		}
		fmt.Fprintf(out, "fetched=%d imported=%d skipped=%d\n", res.Fetched, len(res.Imported), res.Skipped)
		return nil
	},
}

func init() {
	catalogSyncCmd.Flags().Int("id", 0, "sync a single hero by catalog id")

	canonicalizeCmd.Flags().Bool("explain", false, "show how each segment was classified")
	canonicalizeCmd.Flags().Bool("json", false, "print the teams as a JSON array")

	heroesCmd.Flags().String("q", "", "name search")
	heroesCmd.Flags().String("sort", internal.SortByName, "name|"+strings.Join(internal.StatKeys, "|"))
	heroesCmd.Flags().String("dir", internal.SortAsc, "asc|desc")

	for _, c := range []*cobra.Command{teamsCmd, exportTeamsCmd} {
		c.Flags().String("publisher", "", "publisher filter, e.g. \"DC Comics\"")
		c.Flags().String("alignment", "", "good|bad|neutral")
	}
	for _, c := range []*cobra.Command{leaderboardCmd, exportLeaderboardCmd} {
		c.Flags().String("q", "", "hero name search")
	}
	for _, c := range []*cobra.Command{exportLeaderboardCmd, exportTeamsCmd} {
		c.Flags().String("out", "", "output xlsx path (default OUTPUT_DIR)")
	}

	for _, c := range []*cobra.Command{notesAddCmd, notesListCmd, notesDeleteCmd} {
		c.Flags().String("uid", "", "user id")
		_ = c.MarkFlagRequired("uid")
	}
	notesAddCmd.Flags().String("hero", "", "hero catalog id")
	notesAddCmd.Flags().String("title", "", "note title")
	notesAddCmd.Flags().String("desc", "", "note description")
	_ = notesAddCmd.MarkFlagRequired("hero")
	notesListCmd.Flags().String("hero", "", "only notes for this hero id")
	notesDeleteCmd.Flags().String("id", "", "note id")
	_ = notesDeleteCmd.MarkFlagRequired("id")

	rosterImportCmd.Flags().String("file", "", "roster file (.xlsx, .html, .pdf, .eml or text)")
	rosterImportCmd.Flags().String("out", "", "optional xlsx report path")
	_ = rosterImportCmd.MarkFlagRequired("file")

	rosterFetchCmd.Flags().String("mailbox", "", "mailbox to read (default IMAP_MAILBOX)")
	rosterFetchCmd.Flags().Int("max", 0, "max messages per run (default IMAP_FETCH_MAX)")

	usersSeedCmd.Flags().Int("count", 10, "number of users")
	usersSeedCmd.Flags().Int64("seed", 1, "fake data seed")
}

func notesService() (*notes.Service, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	return notes.NewService(db), nil
}

func teamGroups(cmd *cobra.Command) ([]internal.TeamGroup, error) {
	publisher, _ := cmd.Flags().GetString("publisher")
	alignment, _ := cmd.Flags().GetString("alignment")

	db, err := a.store()
	if err != nil {
		return nil, err
	}
	heroes, err := db.ListAllHeroes(a.cfg.HeroBatchSize)
	if err != nil {
		return nil, err
	}
	return directory.GroupByTeam(directory.FilterByPublisherAlignment(heroes, publisher, alignment)), nil
}

func leaderboard(cmd *cobra.Command) ([]internal.LeaderboardEntry, error) {
	term, _ := cmd.Flags().GetString("q")
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	return users.NewService(db, a.logger).Leaderboard(term)
}

func outputPath(cmd *cobra.Command, name string) string {
	if out, _ := cmd.Flags().GetString("out"); strings.TrimSpace(out) != "" {
		return out
	}
	return filepath.Join(a.cfg.OutputDir, name)
}

func statLine(h internal.Hero) string {
	parts := make([]string, 0, len(internal.StatKeys))
	for _, key := range internal.StatKeys {
		if v, ok := h.Stat(key); ok {
			parts = append(parts, fmt.Sprintf("%s=%d", key[:3], v))
		}
	}
	return strings.Join(parts, " ")
}
