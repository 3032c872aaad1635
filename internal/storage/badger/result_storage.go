package badger

import (
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

// ResultStorage implements the ResultStorage interface for Badger
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResultStorage) SaveResult(result *models.ExtractionResult) error {
	if result.ID == "" {
		return fmt.Errorf("result ID is required")
	}

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (s *ResultStorage) GetResult(id string) (*models.ExtractionResult, error) {
	var result models.ExtractionResult
	if err := s.db.Store().Get(id, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("result not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &result, nil
}

// GetLatestResultForField returns the most recent result for a field, or
// nil when the field has never completed.
func (s *ResultStorage) GetLatestResultForField(fieldID string) (*models.ExtractionResult, error) {
	var results []*models.ExtractionResult
	if err := s.db.Store().Find(&results, badgerhold.Where("FieldID").Eq(fieldID).Index("FieldID")); err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results[0], nil
}

func (s *ResultStorage) ListResults(templateID string) ([]*models.ExtractionResult, error) {
	var results []*models.ExtractionResult
	if err := s.db.Store().Find(&results, badgerhold.Where("TemplateID").Eq(templateID).Index("TemplateID")); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

func (s *ResultStorage) DeleteResults(templateID string) error {
	if err := s.db.Store().DeleteMatching(&models.ExtractionResult{}, badgerhold.Where("TemplateID").Eq(templateID).Index("TemplateID")); err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}
	return nil
}
