package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"heroindex/internal/catalog"
	"heroindex/internal/config"
	"heroindex/internal/logging"
	"heroindex/internal/refresher"
	"heroindex/internal/server"
	"heroindex/internal/storage"
	"heroindex/internal/taxonomy"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("HTTP_ADDR", cfg.HTTPAddr))

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	must(err)
	defer func() { _ = logger.Sync() }()

	canon, err := taxonomy.FromFile(cfg.TeamRulesPath)
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(db, cfg, canon, logger)
	syncer := catalog.NewSyncService(db, cfg, canon, logger)
	refresh := refresher.NewService(db, syncer, cfg, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, cfg.HTTPAddr) })
	g.Go(func() error { return refresh.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("api stopped", zap.Error(err))
		must(err)
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
