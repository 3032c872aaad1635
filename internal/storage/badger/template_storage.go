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

// TemplateStorage implements the TemplateStorage interface for Badger.
// Fields are stored as their own records, indexed by template.
type TemplateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTemplateStorage creates a new TemplateStorage instance
func NewTemplateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TemplateStorage {
	return &TemplateStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TemplateStorage) SaveTemplate(template *models.Template) error {
	if template.ID == "" {
		return fmt.Errorf("template ID is required")
	}

	now := time.Now()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	if err := s.db.Store().Upsert(template.ID, template); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func (s *TemplateStorage) GetTemplate(id string) (*models.Template, error) {
	var template models.Template
	if err := s.db.Store().Get(id, &template); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("template not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

func (s *TemplateStorage) ListTemplates(projectID string) ([]*models.Template, error) {
	var templates []*models.Template
	query := &badgerhold.Query{}
	if projectID != "" {
		query = badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")
	}
	if err := s.db.Store().Find(&templates, query); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateStorage) DeleteTemplate(id string) error {
	// Remove the template's fields first so none are orphaned.
	if err := s.db.Store().DeleteMatching(&models.Field{}, badgerhold.Where("TemplateID").Eq(id).Index("TemplateID")); err != nil {
		return fmt.Errorf("failed to delete template fields: %w", err)
	}
	if err := s.db.Store().Delete(id, &models.Template{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func (s *TemplateStorage) SaveField(field *models.Field) error {
	if field.ID == "" {
		return fmt.Errorf("field ID is required")
	}
	if field.TemplateID == "" {
		return fmt.Errorf("field template ID is required")
	}

	now := time.Now()
	if field.CreatedAt.IsZero() {
		field.CreatedAt = now
	}
	field.UpdatedAt = now

	if err := s.db.Store().Upsert(field.ID, field); err != nil {
		return fmt.Errorf("failed to save field: %w", err)
	}
	return nil
}

func (s *TemplateStorage) GetField(id string) (*models.Field, error) {
	var field models.Field
	if err := s.db.Store().Get(id, &field); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("field not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return &field, nil
}

// ListFields returns the template's fields ordered by position.
func (s *TemplateStorage) ListFields(templateID string) ([]*models.Field, error) {
	var fields []*models.Field
	if err := s.db.Store().Find(&fields, badgerhold.Where("TemplateID").Eq(templateID).Index("TemplateID")); err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Position < fields[j].Position
	})
	return fields, nil
}

func (s *TemplateStorage) DeleteField(id string) error {
	if err := s.db.Store().Delete(id, &models.Field{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete field: %w", err)
	}
	return nil
}
