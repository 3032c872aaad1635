package common

import (
	"github.com/google/uuid"
)

// NewProjectID generates a unique project ID with the "prj_" prefix
func NewProjectID() string {
	return "prj_" + uuid.New().String()
}

// NewTemplateID generates a unique template ID with the "tpl_" prefix
func NewTemplateID() string {
	return "tpl_" + uuid.New().String()
}

// NewFieldID generates a unique field ID with the "fld_" prefix
func NewFieldID() string {
	return "fld_" + uuid.New().String()
}

// NewDocumentID generates a unique document ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewProcessingID generates the opaque server-issued processing identifier
// correlating a start call with its event stream and abort call.
func NewProcessingID() string {
	return "proc_" + uuid.New().String()
}

// NewResultID generates a unique extraction result ID with the "res_" prefix
func NewResultID() string {
	return "res_" + uuid.New().String()
}
