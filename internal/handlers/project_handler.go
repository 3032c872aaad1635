package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

// ProjectHandler handles project CRUD requests.
type ProjectHandler struct {
	storage interfaces.ProjectStorage
	logger  arbor.ILogger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(storage interfaces.ProjectStorage, logger arbor.ILogger) *ProjectHandler {
	return &ProjectHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListProjectsHandler returns the tenant's projects.
// GET /api/projects?tenant_id={id}
func (h *ProjectHandler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	projects, err := h.storage.ListProjects(r.URL.Query().Get("tenant_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list projects")
		WriteError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// CreateProjectHandler creates a project.
// POST /api/projects
func (h *ProjectHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var project models.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if project.Name == "" {
		WriteError(w, http.StatusBadRequest, "Project name is required")
		return
	}
	if project.ID == "" {
		project.ID = common.NewProjectID()
	}

	if err := h.storage.SaveProject(&project); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save project")
		WriteError(w, http.StatusInternalServerError, "Failed to save project")
		return
	}

	WriteJSON(w, http.StatusCreated, &project)
}

// GetProjectHandler returns one project by id.
// GET /api/projects/{id}
func (h *ProjectHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request, id string) {
	project, err := h.storage.GetProject(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Project not found")
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// DeleteProjectHandler removes a project.
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.storage.DeleteProject(id); err != nil {
		h.logger.Error().Err(err).Str("project_id", id).Msg("Failed to delete project")
		WriteError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	WriteSuccess(w, "Project deleted")
}
