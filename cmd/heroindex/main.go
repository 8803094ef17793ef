package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"heroindex/internal/config"
	"heroindex/internal/logging"
	"heroindex/internal/storage"
	"heroindex/internal/taxonomy"
)

type app struct {
	cfg    config.Config
	logger *zap.Logger
	canon  *taxonomy.Canonicalizer
	db     *storage.DB
}

var a app

var rootCmd = &cobra.Command{
	Use:           "heroindex",
	Short:         "Superhero catalog with canonical team affiliations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return a.setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		a.close()
	},
}

func init() {
	rootCmd.AddCommand(
		catalogSyncCmd,
		canonicalizeCmd,
		heroesCmd,
		teamsCmd,
		leaderboardCmd,
		notesAddCmd,
		notesListCmd,
		notesDeleteCmd,
		usersSeedCmd,
		rosterImportCmd,
		rosterFetchCmd,
		exportLeaderboardCmd,
		exportTeamsCmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(rootCmd.ExecuteContext(ctx))
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	canon, err := taxonomy.FromFile(cfg.TeamRulesPath)
	if err != nil {
		return fmt.Errorf("load team rules: %w", err)
	}
	a.cfg, a.logger, a.canon = cfg, logger, canon
	return nil
}

// store opens the database on first use.
func (a *app) store() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func must(err error) {
	if err == nil {
		return
	}
	a.close()
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
