package interfaces

import "github.com/fieldrun/fieldrun/internal/models"

// ProjectStorage persists projects.
type ProjectStorage interface {
	SaveProject(project *models.Project) error
	GetProject(id string) (*models.Project, error)
	ListProjects(tenantID string) ([]*models.Project, error)
	DeleteProject(id string) error
}

// TemplateStorage persists templates and their fields.
type TemplateStorage interface {
	SaveTemplate(template *models.Template) error
	GetTemplate(id string) (*models.Template, error)
	ListTemplates(projectID string) ([]*models.Template, error)
	DeleteTemplate(id string) error

	SaveField(field *models.Field) error
	GetField(id string) (*models.Field, error)
	// ListFields returns the template's fields ordered by position.
	ListFields(templateID string) ([]*models.Field, error)
	DeleteField(id string) error
}

// DocumentStorage persists uploaded documents.
type DocumentStorage interface {
	SaveDocument(doc *models.Document) error
	GetDocument(id string) (*models.Document, error)
	GetDocuments(ids []string) ([]*models.Document, error)
	ListDocuments(projectID string) ([]*models.Document, error)
	DeleteDocument(id string) error
}

// ResultStorage persists completed extraction results.
type ResultStorage interface {
	SaveResult(result *models.ExtractionResult) error
	GetResult(id string) (*models.ExtractionResult, error)
	GetLatestResultForField(fieldID string) (*models.ExtractionResult, error)
	ListResults(templateID string) ([]*models.ExtractionResult, error)
	DeleteResults(templateID string) error
}

// KeyValueStorage stores small configuration values and API keys.
type KeyValueStorage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	ProjectStorage() ProjectStorage
	TemplateStorage() TemplateStorage
	DocumentStorage() DocumentStorage
	ResultStorage() ResultStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
