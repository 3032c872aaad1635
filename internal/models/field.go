package models

import "time"

// OutputType is the declared output shape of a field's extraction.
type OutputType string

const (
	OutputTypeText  OutputType = "text"
	OutputTypeTable OutputType = "table"
	OutputTypeChart OutputType = "chart"
)

// Field is an extraction spec belonging to a template. The processing core
// treats fields as read-only: they are created and edited by the template
// editor and consumed here only for their id, description, output type,
// position, and declared dependencies.
type Field struct {
	ID          string     `json:"id" badgerhold:"key"`
	TemplateID  string     `json:"template_id" badgerhold:"index"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	OutputType  OutputType `json:"output_type"`

	// Position orders the field within its template. Dependency resolution
	// defaults to every field with a strictly smaller position.
	Position int `json:"position"`

	// Dependencies is an optional explicit list of field IDs this field
	// depends on. Empty means "all earlier fields in template order".
	Dependencies []string `json:"dependencies,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Template groups an ordered set of fields for a project.
type Template struct {
	ID          string    `json:"id" badgerhold:"key"`
	ProjectID   string    `json:"project_id" badgerhold:"index"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TemplateSnapshot is the immutable template metadata attached to a job
// start request. Snapshots are taken at launch time so a concurrent template
// edit cannot change a run mid-flight.
type TemplateSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectSnapshot is the immutable project metadata attached to a job start
// request.
type ProjectSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
