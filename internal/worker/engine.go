package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

// Engine runs field-extraction jobs: it loads the applicable documents,
// drives the LLM provider, publishes progress over each job's event stream,
// and persists completed results.
type Engine struct {
	storage  interfaces.StorageManager
	llm      interfaces.LLMService
	events   interfaces.EventService
	registry *Registry
	limiter  *rate.Limiter
	logger   arbor.ILogger
}

// NewEngine creates an extraction engine. LLM calls are rate limited per
// the processing configuration to stay inside provider quotas.
func NewEngine(
	config *common.ProcessingConfig,
	storage interfaces.StorageManager,
	llm interfaces.LLMService,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Engine {
	rps := config.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	burst := config.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Engine{
		storage:  storage,
		llm:      llm,
		events:   events,
		registry: NewRegistry(logger),
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		logger:   logger,
	}
}

// Registry exposes the active-job registry for the stream/abort handlers.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start registers a new processing job and runs it in the background.
// Returns the server-issued processing identifier.
func (e *Engine) Start(req *models.StartRequest) (string, error) {
	if req == nil || req.FieldID == "" {
		return "", fmt.Errorf("field_id is required")
	}

	processingID := common.NewProcessingID()
	ctx, cancel := context.WithCancel(context.Background())
	j := e.registry.register(processingID, req.FieldID, cancel)

	e.logger.Info().
		Str("processing_id", processingID).
		Str("field_id", req.FieldID).
		Int("document_count", len(req.DocumentIDs)).
		Int("dependent_results", len(req.DependentResults)).
		Msg("Processing job accepted")

	common.SafeGo(e.logger, "extraction:"+processingID, func() {
		defer cancel()
		e.run(ctx, j, req)
	})

	return processingID, nil
}

// run executes one extraction to its terminal event.
func (e *Engine) run(ctx context.Context, j *job, req *models.StartRequest) {
	jobLogger := e.logger.WithCorrelationId(j.processingID)

	e.progress(ctx, j, models.StagePreparing, 5, "Loading documents")

	docs, err := e.storage.DocumentStorage().GetDocuments(req.DocumentIDs)
	if err != nil {
		e.fail(ctx, j, fmt.Sprintf("failed to load documents: %v", err))
		return
	}

	e.progress(ctx, j, models.StageAnalyzing, 25, fmt.Sprintf("Analyzing %d documents", len(docs)))

	if err := e.limiter.Wait(ctx); err != nil {
		e.cancelled(ctx, j)
		return
	}

	messages := buildMessages(req, docs)

	e.progress(ctx, j, models.StageExtracting, 50, "Running extraction")

	response, err := e.llm.Chat(ctx, messages)
	if ctx.Err() != nil {
		e.cancelled(ctx, j)
		return
	}
	if err != nil {
		e.fail(ctx, j, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	e.progress(ctx, j, models.StageFormatting, 90, "Formatting results")

	result := parseModelResponse(req.OutputFormat, response, docs)

	record := &models.ExtractionResult{
		ID:           common.NewResultID(),
		ProjectID:    req.Project.ID,
		TemplateID:   req.Template.ID,
		FieldID:      req.FieldID,
		ProcessingID: j.processingID,
		Result:       *result,
	}
	if err := e.storage.ResultStorage().SaveResult(record); err != nil {
		jobLogger.Warn().Err(err).Msg("Failed to persist extraction result")
	}

	e.complete(ctx, j, result)

	jobLogger.Info().
		Str("field_id", req.FieldID).
		Int("lines", len(result.Text)).
		Msg("Processing job completed")
}

func (e *Engine) progress(ctx context.Context, j *job, stage string, percent int, message string) {
	payload, _ := json.Marshal(models.ProgressEvent{
		Stage:    stage,
		Progress: percent,
		Message:  message,
	})
	j.publish(StreamEvent{Name: models.StreamEventProgress, Data: payload}, false)

	e.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobProgress,
		Payload: map[string]interface{}{
			"processing_id": j.processingID,
			"field_id":      j.fieldID,
			"stage":         stage,
			"progress":      percent,
			"message":       message,
		},
	})
}

func (e *Engine) complete(ctx context.Context, j *job, result *models.ProcessedResult) {
	payload, _ := json.Marshal(models.CompletedEvent{
		Results: models.CompletedResults{
			Response:         result.Text,
			LineMap:          result.LineMap,
			EvidenceAnalysis: result.EvidenceAnalysis,
		},
	})
	j.publish(StreamEvent{Name: models.StreamEventCompleted, Data: payload}, true)

	e.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobCompleted,
		Payload: map[string]interface{}{
			"processing_id": j.processingID,
			"field_id":      j.fieldID,
		},
	})
}

func (e *Engine) fail(ctx context.Context, j *job, message string) {
	e.logger.Error().
		Str("processing_id", j.processingID).
		Str("field_id", j.fieldID).
		Str("error", message).
		Msg("Processing job failed")

	payload, _ := json.Marshal(models.ErrorEvent{Error: message})
	j.publish(StreamEvent{Name: models.StreamEventError, Data: payload}, true)

	e.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobFailed,
		Payload: map[string]interface{}{
			"processing_id": j.processingID,
			"field_id":      j.fieldID,
			"error":         message,
		},
	})
}

func (e *Engine) cancelled(ctx context.Context, j *job) {
	e.logger.Info().
		Str("processing_id", j.processingID).
		Str("field_id", j.fieldID).
		Msg("Processing job cancelled")

	j.publish(StreamEvent{Name: models.StreamEventCancelled, Data: []byte("{}")}, true)

	// The job context is already cancelled; publish with a fresh context so
	// websocket subscribers still hear about it.
	e.events.Publish(context.Background(), interfaces.Event{
		Type: interfaces.EventJobCancelled,
		Payload: map[string]interface{}{
			"processing_id": j.processingID,
			"field_id":      j.fieldID,
		},
	})
}
