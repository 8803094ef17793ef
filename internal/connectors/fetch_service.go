package connectors

import (
	"fmt"

	"go.uber.org/zap"

	"heroindex/internal/logging"
	"heroindex/internal/roster"
	"heroindex/internal/storage"
)

const importedKeyPrefix = "mail.imported."

type Importer interface {
	Import(path string) (roster.Report, error)
}

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStore
	importer  Importer
	logger    *zap.Logger
}

type FetchResult struct {
	Fetched  int
	Skipped  int
	Imported []roster.Report
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, importer Importer, logger *zap.Logger) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStore(rawMailDir),
		importer:  importer,
		logger:    logging.OrNop(logger),
	}
}

// FetchAndImport imports every unseen roster email. A message whose content
// was already imported is skipped.
func (s *FetchService) FetchAndImport(mailbox string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchUnseen(mailbox, max)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", mailbox, err)
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		hash, path, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}

		done, err := s.db.GetMetadata(importedKeyPrefix + hash)
		if err != nil {
			return res, err
		}
		if done != nil {
			res.Skipped++
			continue
		}

		report, err := s.importer.Import(path)
		if err != nil {
			s.logger.Warn("roster email not imported",
				zap.String("messageId", msg.MessageID),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			continue
		}
		if err := s.db.SetMetadata(importedKeyPrefix+hash, msg.MessageID); err != nil {
			return res, err
		}
		res.Imported = append(res.Imported, report)
	}
	return res, nil
}
