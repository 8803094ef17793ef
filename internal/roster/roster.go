// Package roster imports third-party hero rosters (spreadsheets, HTML
// tables, PDFs, forwarded emails), resolves each hero against the stored
// catalog and canonicalizes the listed affiliations.
package roster

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"heroindex/internal/config"
	"heroindex/internal/logging"
	"heroindex/internal/storage"
	"heroindex/internal/taxonomy"
)

type Result struct {
	Row
	Match Match    `json:"match"`
	Teams []string `json:"teams"`
}

type Report struct {
	Path     string   `json:"path"`
	Results  []Result `json:"results"`
	OK       int      `json:"ok"`
	Review   int      `json:"review"`
	NotFound int      `json:"notFound"`
}

type Service struct {
	db     *storage.DB
	cfg    config.Config
	canon  *taxonomy.Canonicalizer
	logger *zap.Logger
}

func NewService(db *storage.DB, cfg config.Config, canon *taxonomy.Canonicalizer, logger *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, canon: canon, logger: logging.OrNop(logger)}
}

func (s *Service) Import(path string) (Report, error) {
	start := time.Now()
	rows, err := ExtractFile(path)
	if err != nil {
		return Report{}, err
	}

	heroes, err := s.db.ListAllHeroes(s.cfg.HeroBatchSize)
	if err != nil {
		return Report{}, fmt.Errorf("load heroes: %w", err)
	}

	report := Reconcile(NewMatcher(s.cfg, heroes), s.canon, rows)
	report.Path = path

	s.logger.Info("roster imported",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
		zap.Int("ok", report.OK),
		zap.Int("review", report.Review),
		zap.Int("notFound", report.NotFound),
		zap.Duration("took", time.Since(start)),
	)
	return report, nil
}

// Reconcile matches every row and canonicalizes its affiliation text.
func Reconcile(m *Matcher, canon *taxonomy.Canonicalizer, rows []Row) Report {
	report := Report{Results: make([]Result, 0, len(rows))}
	for _, row := range rows {
		match := m.Match(row.HeroName)
		switch match.Status {
		case MatchOK:
			report.OK++
		case MatchReview:
			report.Review++
		case MatchNotFound:
			report.NotFound++
		}
		report.Results = append(report.Results, Result{
			Row:   row,
			Match: match,
			Teams: canon.CanonicalizeStrings([]string{row.Affiliation}).Names(),
		})
	}
	return report
}
