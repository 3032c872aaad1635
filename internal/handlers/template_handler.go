package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

// TemplateHandler handles template and field CRUD requests.
type TemplateHandler struct {
	storage interfaces.TemplateStorage
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(storage interfaces.TemplateStorage, events interfaces.EventService, logger arbor.ILogger) *TemplateHandler {
	return &TemplateHandler{
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// ListTemplatesHandler returns the project's templates.
// GET /api/templates?project_id={id}
func (h *TemplateHandler) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	templates, err := h.storage.ListTemplates(r.URL.Query().Get("project_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list templates")
		WriteError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// CreateTemplateHandler creates a template.
// POST /api/templates
func (h *TemplateHandler) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var template models.Template
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if template.Name == "" {
		WriteError(w, http.StatusBadRequest, "Template name is required")
		return
	}
	if template.ID == "" {
		template.ID = common.NewTemplateID()
	}

	if err := h.storage.SaveTemplate(&template); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save template")
		WriteError(w, http.StatusInternalServerError, "Failed to save template")
		return
	}

	WriteJSON(w, http.StatusCreated, &template)
}

// GetTemplateHandler returns one template with its fields in position order.
// GET /api/templates/{id}
func (h *TemplateHandler) GetTemplateHandler(w http.ResponseWriter, r *http.Request, id string) {
	template, err := h.storage.GetTemplate(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Template not found")
		return
	}

	fields, err := h.storage.ListFields(id)
	if err != nil {
		h.logger.Error().Err(err).Str("template_id", id).Msg("Failed to list fields")
		WriteError(w, http.StatusInternalServerError, "Failed to list fields")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"template": template,
		"fields":   fields,
	})
}

// DeleteTemplateHandler removes a template and its fields.
// DELETE /api/templates/{id}
func (h *TemplateHandler) DeleteTemplateHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.storage.DeleteTemplate(id); err != nil {
		h.logger.Error().Err(err).Str("template_id", id).Msg("Failed to delete template")
		WriteError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	h.publishTemplateChanged(r, id)
	WriteSuccess(w, "Template deleted")
}

// ListFieldsHandler returns a template's fields in position order.
// GET /api/templates/{id}/fields
func (h *TemplateHandler) ListFieldsHandler(w http.ResponseWriter, r *http.Request, templateID string) {
	fields, err := h.storage.ListFields(templateID)
	if err != nil {
		h.logger.Error().Err(err).Str("template_id", templateID).Msg("Failed to list fields")
		WriteError(w, http.StatusInternalServerError, "Failed to list fields")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"fields": fields,
		"count":  len(fields),
	})
}

// SaveFieldHandler creates or updates a field on a template.
// POST /api/templates/{id}/fields
func (h *TemplateHandler) SaveFieldHandler(w http.ResponseWriter, r *http.Request, templateID string) {
	var field models.Field
	if err := json.NewDecoder(r.Body).Decode(&field); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if field.Name == "" {
		WriteError(w, http.StatusBadRequest, "Field name is required")
		return
	}
	field.TemplateID = templateID
	if field.OutputType == "" {
		field.OutputType = models.OutputTypeText
	}
	if field.ID == "" {
		field.ID = common.NewFieldID()
	}

	if err := h.storage.SaveField(&field); err != nil {
		h.logger.Error().Err(err).Str("template_id", templateID).Msg("Failed to save field")
		WriteError(w, http.StatusInternalServerError, "Failed to save field")
		return
	}

	h.publishTemplateChanged(r, templateID)
	WriteJSON(w, http.StatusCreated, &field)
}

// DeleteFieldHandler removes a field.
// DELETE /api/fields/{id}
func (h *TemplateHandler) DeleteFieldHandler(w http.ResponseWriter, r *http.Request, id string) {
	field, err := h.storage.GetField(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Field not found")
		return
	}

	if err := h.storage.DeleteField(id); err != nil {
		h.logger.Error().Err(err).Str("field_id", id).Msg("Failed to delete field")
		WriteError(w, http.StatusInternalServerError, "Failed to delete field")
		return
	}

	h.publishTemplateChanged(r, field.TemplateID)
	WriteSuccess(w, "Field deleted")
}

func (h *TemplateHandler) publishTemplateChanged(r *http.Request, templateID string) {
	h.events.Publish(r.Context(), interfaces.Event{
		Type: interfaces.EventTemplateChanged,
		Payload: map[string]interface{}{
			"template_id": templateID,
		},
	})
}
