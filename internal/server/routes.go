package server

import (
	"net/http"
	"strings"
)

// setupRoutes builds the route table. Subpath routes ({id} segments) are
// dispatched manually off the trailing-slash prefix registrations.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket for job lifecycle pushes
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Service status
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// Field processing lifecycle
	mux.HandleFunc("/api/process", s.app.ProcessHandler.StartHandler)       // POST - start a job
	mux.HandleFunc("/api/process/abort", s.app.ProcessHandler.AbortHandler) // POST - release a job
	mux.HandleFunc("/api/process/", s.handleProcessRoutes)                  // GET /{fieldID}/stream

	// Projects
	mux.HandleFunc("/api/projects", s.handleProjectsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/projects/", s.handleProjectRoutes) // GET/DELETE /{id}

	// Templates and fields
	mux.HandleFunc("/api/templates", s.handleTemplatesRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/templates/", s.handleTemplateRoutes) // GET/DELETE /{id}, GET/POST /{id}/fields
	mux.HandleFunc("/api/fields/", s.handleFieldRoutes)       // DELETE /{id}, GET /{id}/result

	// Documents
	mux.HandleFunc("/api/documents", s.handleDocumentsRoute)  // GET (list), POST (upload)
	mux.HandleFunc("/api/documents/", s.handleDocumentRoutes) // GET/DELETE /{id}

	// Results
	mux.HandleFunc("/api/results", s.app.ResultHandler.ListResultsHandler) // GET ?template_id=

	return mux
}

// handleProcessRoutes dispatches /api/process/{fieldID}/stream
func (s *Server) handleProcessRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/process/")
	if fieldID, ok := strings.CutSuffix(rest, "/stream"); ok && fieldID != "" && !strings.Contains(fieldID, "/") {
		s.app.ProcessHandler.StreamHandler(fieldID)(w, r)
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

func (s *Server) handleProjectsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.ProjectHandler.ListProjectsHandler(w, r)
	case "POST":
		s.app.ProjectHandler.CreateProjectHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProjectRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "GET":
		s.app.ProjectHandler.GetProjectHandler(w, r, id)
	case "DELETE":
		s.app.ProjectHandler.DeleteProjectHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTemplatesRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.TemplateHandler.ListTemplatesHandler(w, r)
	case "POST":
		s.app.TemplateHandler.CreateTemplateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTemplateRoutes dispatches /api/templates/{id} and
// /api/templates/{id}/fields
func (s *Server) handleTemplateRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/templates/")

	if id, ok := strings.CutSuffix(rest, "/fields"); ok && id != "" && !strings.Contains(id, "/") {
		switch r.Method {
		case "GET":
			s.app.TemplateHandler.ListFieldsHandler(w, r, id)
		case "POST":
			s.app.TemplateHandler.SaveFieldHandler(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if rest == "" || strings.Contains(rest, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "GET":
		s.app.TemplateHandler.GetTemplateHandler(w, r, rest)
	case "DELETE":
		s.app.TemplateHandler.DeleteTemplateHandler(w, r, rest)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFieldRoutes dispatches /api/fields/{id} and /api/fields/{id}/result
func (s *Server) handleFieldRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/fields/")

	if id, ok := strings.CutSuffix(rest, "/result"); ok && id != "" && !strings.Contains(id, "/") {
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.ResultHandler.GetLatestFieldResultHandler(w, r, id)
		return
	}

	if rest == "" || strings.Contains(rest, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	if r.Method != "DELETE" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.app.TemplateHandler.DeleteFieldHandler(w, r, rest)
}

func (s *Server) handleDocumentsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.DocumentHandler.ListDocumentsHandler(w, r)
	case "POST":
		s.app.DocumentHandler.UploadDocumentHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDocumentRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "GET":
		s.app.DocumentHandler.GetDocumentHandler(w, r, id)
	case "DELETE":
		s.app.DocumentHandler.DeleteDocumentHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
