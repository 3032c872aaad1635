package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/worker"
)

// StatusHandler reports service health and version.
type StatusHandler struct {
	engine    *worker.Engine
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(engine *worker.Engine, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		engine:    engine,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// GetStatusHandler returns service status.
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     common.GetVersion(),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"active_jobs": h.engine.Registry().ActiveCount(),
	})
}
