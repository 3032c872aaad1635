package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

// DocumentHandler handles document upload and retrieval.
type DocumentHandler struct {
	storage interfaces.DocumentStorage
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(storage interfaces.DocumentStorage, events interfaces.EventService, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// ListDocumentsHandler returns the project's documents.
// GET /api/documents?project_id={id}
func (h *DocumentHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	docs, err := h.storage.ListDocuments(r.URL.Query().Get("project_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list documents")
		WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// UploadDocumentHandler stores a document's extracted text lines.
// POST /api/documents
func (h *DocumentHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if doc.ProjectID == "" || doc.Name == "" {
		WriteError(w, http.StatusBadRequest, "project_id and name are required")
		return
	}
	if doc.ID == "" {
		doc.ID = common.NewDocumentID()
	}

	if err := h.storage.SaveDocument(&doc); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save document")
		WriteError(w, http.StatusInternalServerError, "Failed to save document")
		return
	}

	h.events.Publish(r.Context(), interfaces.Event{
		Type: interfaces.EventDocumentUpload,
		Payload: map[string]interface{}{
			"document_id": doc.ID,
			"project_id":  doc.ProjectID,
		},
	})

	WriteJSON(w, http.StatusCreated, &doc)
}

// GetDocumentHandler returns one document by id.
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocumentHandler(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := h.storage.GetDocument(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// DeleteDocumentHandler removes a document.
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.storage.DeleteDocument(id); err != nil {
		h.logger.Error().Err(err).Str("document_id", id).Msg("Failed to delete document")
		WriteError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}
	WriteSuccess(w, "Document deleted")
}
