package models

import "time"

// Project is a tenant-scoped container for uploaded documents and templates.
type Project struct {
	ID        string    `json:"id" badgerhold:"key"`
	TenantID  string    `json:"tenant_id" badgerhold:"index"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is an uploaded source file within a project. Content is stored
// as extracted plain text, one entry per source line, so extraction results
// can cite back to individual lines.
type Document struct {
	ID        string    `json:"id" badgerhold:"key"`
	ProjectID string    `json:"project_id" badgerhold:"index"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type,omitempty"`
	Lines     []string  `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
