// Package refresher re-syncs the catalog on a fixed interval for the
// long-running API process.
package refresher

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"heroindex/internal/catalog"
	"heroindex/internal/config"
	"heroindex/internal/directory"
	"heroindex/internal/export"
	"heroindex/internal/logging"
	"heroindex/internal/storage"
)

// Syncer is the part of catalog.SyncService a refresh cycle needs.
type Syncer interface {
	Sync(ctx context.Context) (catalog.SyncResult, error)
}

type Service struct {
	db     *storage.DB
	syncer Syncer
	cfg    config.Config
	logger *zap.Logger
}

func NewService(db *storage.DB, syncer Syncer, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{db: db, syncer: syncer, cfg: cfg, logger: logging.OrNop(logger)}
}

// Run performs a cycle immediately and then every CatalogRefreshInterval
// until ctx is done. Cycle errors are logged, not returned.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.CatalogRefreshIntervalSec) * time.Second
	if interval <= 0 {
		return nil
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.logger.Warn("refresh cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) error {
	res, err := s.syncer.Sync(ctx)
	if err != nil {
		return err
	}

	if s.cfg.RefreshAutoExport && (res.Added > 0 || res.TeamsChanged > 0) {
		if err := s.exportTeams(); err != nil {
			return err
		}
	}

	s.logger.Info("refresh cycle done",
		zap.Int("fetched", res.Fetched),
		zap.Int("added", res.Added),
		zap.Int("teamsChanged", res.TeamsChanged),
	)
	return nil
}

func (s *Service) exportTeams() error {
	heroes, err := s.db.ListAllHeroes(s.cfg.HeroBatchSize)
	if err != nil {
		return err
	}
	outputPath := filepath.Join(s.cfg.OutputDir, "refresh", "teams.xlsx")
	if err := export.TeamsXLSX(directory.GroupByTeam(heroes), outputPath); err != nil {
		return err
	}
	s.logger.Info("team roster exported", zap.String("path", outputPath))
	return nil
}
