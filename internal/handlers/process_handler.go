package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/models"
	"github.com/fieldrun/fieldrun/internal/worker"
)

const streamPingInterval = 15 * time.Second

// ProcessHandler exposes the field-processing lifecycle: start, progress
// stream, and abort.
type ProcessHandler struct {
	engine *worker.Engine
	logger arbor.ILogger
}

// NewProcessHandler creates a new processing handler.
func NewProcessHandler(engine *worker.Engine, logger arbor.ILogger) *ProcessHandler {
	return &ProcessHandler{
		engine: engine,
		logger: logger,
	}
}

// StartHandler accepts a field-processing request and returns the processing
// identifier immediately; the extraction runs in the background.
// POST /api/process
func (h *ProcessHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	processingID, err := h.engine.Start(&req)
	if err != nil {
		h.logger.Warn().Err(err).Str("field_id", req.FieldID).Msg("Failed to start processing")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"processingId": processingID,
	})
}

// StreamHandler serves the progress event stream for a processing job over
// SSE. Events already published before the client attached are replayed
// first, so a reconnecting client never misses the terminal event.
// GET /api/process/{fieldID}/stream?processing_id={id}&token={token}
func (h *ProcessHandler) StreamHandler(fieldID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}

		processingID := r.URL.Query().Get("processing_id")
		if processingID == "" {
			processingID = h.engine.Registry().FindByField(fieldID)
		}
		if processingID == "" {
			WriteError(w, http.StatusNotFound, "No processing job for field")
			return
		}

		history, events, release, err := h.engine.Registry().Subscribe(processingID)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		defer release()

		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "Streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		h.logger.Debug().
			Str("processing_id", processingID).
			Str("field_id", fieldID).
			Msg("Stream client connected")

		for _, event := range history {
			writeStreamEvent(w, event)
			if isTerminalEvent(event.Name) {
				flusher.Flush()
				return
			}
		}
		flusher.Flush()

		pingTicker := time.NewTicker(streamPingInterval)
		defer pingTicker.Stop()

		for {
			select {
			case <-r.Context().Done():
				h.logger.Debug().
					Str("processing_id", processingID).
					Msg("Stream client disconnected")
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				writeStreamEvent(w, event)
				flusher.Flush()
				if isTerminalEvent(event.Name) {
					return
				}
			case <-pingTicker.C:
				fmt.Fprintf(w, "event: %s\ndata: {}\n\n", models.StreamEventPing)
				flusher.Flush()
			}
		}
	}
}

// AbortHandler releases a running job. Abort is best-effort: an unknown or
// already-finished processing id still gets a success response, since the
// caller has nothing useful to do with a failure.
// POST /api/process/abort
func (h *ProcessHandler) AbortHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.AbortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProcessingID == "" {
		WriteSuccess(w, "Nothing to abort")
		return
	}

	if h.engine.Registry().Cancel(req.ProcessingID) {
		h.logger.Info().Str("processing_id", req.ProcessingID).Msg("Processing job aborted")
	}
	WriteSuccess(w, "Abort requested")
}

func writeStreamEvent(w http.ResponseWriter, event worker.StreamEvent) {
	fmt.Fprintf(w, "event: %s\n", event.Name)
	fmt.Fprintf(w, "data: %s\n\n", event.Data)
}

func isTerminalEvent(name string) bool {
	switch name {
	case models.StreamEventCompleted, models.StreamEventError, models.StreamEventCancelled:
		return true
	}
	return false
}
