package catalog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"heroindex/internal"
	"heroindex/internal/config"
	"heroindex/internal/logging"
	"heroindex/internal/storage"
	"heroindex/internal/taxonomy"
)

const lastSyncKey = "catalog.last_sync"

type SyncService struct {
	db     *storage.DB
	client *Client
	canon  *taxonomy.Canonicalizer
	cfg    config.Config
	logger *zap.Logger
}

type SyncResult struct {
	Fetched int
	SyncDiff
}

func NewSyncService(db *storage.DB, cfg config.Config, canon *taxonomy.Canonicalizer, logger *zap.Logger) *SyncService {
	return &SyncService{
		db:     db,
		client: NewClient(cfg),
		canon:  canon,
		cfg:    cfg,
		logger: logging.OrNop(logger),
	}
}

// Sync fetches the whole catalog, canonicalizes every hero's teams and
// upserts the result.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	start := time.Now()
	heroes, err := s.client.GetAllHeroes(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch catalog: %w", err)
	}

	existing, err := s.db.ListAllHeroes(s.cfg.HeroBatchSize)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load stored heroes: %w", err)
	}

	if err := AssignTeams(ctx, s.canon, heroes, s.cfg.SyncWorkers); err != nil {
		return SyncResult{}, err
	}

	diff := BuildIndex(existing).Diff(heroes)
	if err := s.db.UpsertHeroes(heroes); err != nil {
		return SyncResult{}, fmt.Errorf("store heroes: %w", err)
	}
	if err := s.db.SetMetadata(lastSyncKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("last sync time not recorded", zap.Error(err))
	}

	s.logger.Info("catalog sync complete",
		zap.Int("fetched", len(heroes)),
		zap.Int("added", diff.Added),
		zap.Int("teamsChanged", diff.TeamsChanged),
		zap.Duration("took", time.Since(start)),
	)
	return SyncResult{Fetched: len(heroes), SyncDiff: diff}, nil
}

// SyncHero refreshes a single hero by catalog id.
func (s *SyncService) SyncHero(ctx context.Context, id int) (internal.Hero, error) {
	hero, err := s.client.GetHero(ctx, id)
	if err != nil {
		return internal.Hero{}, fmt.Errorf("fetch hero %d: %w", id, err)
	}
	hero.Teams = s.canon.CanonicalizeStrings(hero.RawAffiliations).Names()
	if err := s.db.UpsertHeroes([]internal.Hero{hero}); err != nil {
		return internal.Hero{}, fmt.Errorf("store hero %d: %w", id, err)
	}
	s.logger.Info("hero synced", zap.Int("apiId", id), zap.Strings("teams", hero.Teams))
	return hero, nil
}

// LastSync returns the time of the last full sync, or the zero time.
func (s *SyncService) LastSync() (time.Time, error) {
	v, err := s.db.GetMetadata(lastSyncKey)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, *v)
}

// AssignTeams fills in Teams for every hero from its raw affiliations,
// using up to workers goroutines.
func AssignTeams(ctx context.Context, canon *taxonomy.Canonicalizer, heroes []internal.Hero, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range heroes {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			heroes[i].Teams = canon.CanonicalizeStrings(heroes[i].RawAffiliations).Names()
			return nil
		})
	}
	return g.Wait()
}
