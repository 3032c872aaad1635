package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/interfaces"
)

// ResultHandler serves persisted extraction results.
type ResultHandler struct {
	storage interfaces.ResultStorage
	logger  arbor.ILogger
}

// NewResultHandler creates a new result handler.
func NewResultHandler(storage interfaces.ResultStorage, logger arbor.ILogger) *ResultHandler {
	return &ResultHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListResultsHandler returns results for a template, newest first per field.
// GET /api/results?template_id={id}
func (h *ResultHandler) ListResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	templateID := r.URL.Query().Get("template_id")
	if templateID == "" {
		WriteError(w, http.StatusBadRequest, "template_id is required")
		return
	}

	results, err := h.storage.ListResults(templateID)
	if err != nil {
		h.logger.Error().Err(err).Str("template_id", templateID).Msg("Failed to list results")
		WriteError(w, http.StatusInternalServerError, "Failed to list results")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// GetLatestFieldResultHandler returns the newest result for a field, or 404
// if the field has never completed.
// GET /api/fields/{id}/result
func (h *ResultHandler) GetLatestFieldResultHandler(w http.ResponseWriter, r *http.Request, fieldID string) {
	result, err := h.storage.GetLatestResultForField(fieldID)
	if err != nil {
		h.logger.Error().Err(err).Str("field_id", fieldID).Msg("Failed to load result")
		WriteError(w, http.StatusInternalServerError, "Failed to load result")
		return
	}
	if result == nil {
		WriteError(w, http.StatusNotFound, "No result for field")
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
