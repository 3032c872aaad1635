package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

// Options configures a Processor.
type Options struct {
	// BackendURL is the worker base URL. Loopback hosts are contacted
	// directly, everything else goes through the same-origin proxy routes.
	BackendURL string

	// Tokens supplies bearer tokens; nil means unauthenticated transport.
	Tokens interfaces.TokenSource

	// HTTPClient overrides the transport client. The default client carries
	// no overall timeout because stream connections are long-lived.
	HTTPClient *http.Client

	Logger arbor.ILogger

	// Run context attached to every start request.
	DocumentIDs   []string
	Project       models.ProjectSnapshot
	Template      models.TemplateSnapshot
	ExecutionMode string

	// StartTimeout bounds the job-start call. Defaults to 30 seconds.
	StartTimeout time.Duration

	// StreamRetries is the reconnect budget for transport-level stream
	// errors. Defaults to 3.
	StreamRetries int

	// BackoffUnit is the base reconnect delay, doubled per attempt.
	// Defaults to 1 second.
	BackoffUnit time.Duration
}

// ResultFunc receives a field's completed result during a run.
type ResultFunc func(fieldID string, result *models.ProcessedResult)

// ErrorFunc receives a field's failure message during a run.
type ErrorFunc func(fieldID string, message string)

// processingJob is the ephemeral state of one in-flight extraction. It owns
// the abort context and, once connected, the event-stream handle. At most
// one processingJob is active per Processor; starting a new one first tears
// down the previous one.
type processingJob struct {
	fieldID      string
	processingID string
	ctx          context.Context
	cancel       context.CancelFunc
	stream       io.Closer
}

// Processor drives field-extraction jobs against the worker service: it
// launches jobs, follows their progress streams, reconciles inter-field
// dependencies, and supports cooperative cancellation. All mutable state
// lives behind one mutex and every job transition funnels through
// replaceJob/forgetJob, so state can never be half-torn-down.
type Processor struct {
	transport  Transport
	httpClient *http.Client
	tokens     interfaces.TokenSource
	logger     arbor.ILogger

	documentIDs   []string
	project       models.ProjectSnapshot
	template      models.TemplateSnapshot
	executionMode string

	startTimeout  time.Duration
	streamRetries int
	backoffUnit   time.Duration

	mu            sync.Mutex
	job           *processingJob
	progress      *models.ProgressSnapshot
	processingAll bool
	runCancelled  bool
}

// New creates a Processor for one run context (project, template, document
// set). The transport strategy is selected once, here, from the backend URL.
func New(opts Options) (*Processor, error) {
	transport, err := NewTransport(opts.BackendURL)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger()
	}

	startTimeout := opts.StartTimeout
	if startTimeout <= 0 {
		startTimeout = 30 * time.Second
	}

	streamRetries := opts.StreamRetries
	if streamRetries <= 0 {
		streamRetries = 3
	}

	backoffUnit := opts.BackoffUnit
	if backoffUnit <= 0 {
		backoffUnit = time.Second
	}

	return &Processor{
		transport:     transport,
		httpClient:    httpClient,
		tokens:        opts.Tokens,
		logger:        logger,
		documentIDs:   opts.DocumentIDs,
		project:       opts.Project,
		template:      opts.Template,
		executionMode: opts.ExecutionMode,
		startTimeout:  startTimeout,
		streamRetries: streamRetries,
		backoffUnit:   backoffUnit,
	}, nil
}

// ProcessField runs one field's extraction to completion. It returns the
// processed result, or (nil, nil) when the job was cancelled. Any previous
// in-flight job is torn down before the start call goes out.
func (p *Processor) ProcessField(ctx context.Context, field *models.Field, dependentResults []models.DependentResult) (*models.ProcessedResult, error) {
	if field == nil || field.ID == "" {
		return nil, fmt.Errorf("field id is required")
	}

	token := p.accessToken(ctx)

	job := p.replaceJob(ctx, field.ID)
	defer p.forgetJob(job)

	processingID, err := p.startJob(job.ctx, field, dependentResults, token)
	if err != nil {
		if job.ctx.Err() != nil {
			return nil, nil
		}
		return nil, err
	}

	p.mu.Lock()
	job.processingID = processingID
	p.mu.Unlock()

	p.logger.Debug().
		Str("field_id", field.ID).
		Str("processing_id", processingID).
		Msg("Processing job started")

	return p.streamResult(job, token)
}

// ProcessAllFields processes every field strictly in template order, one at
// a time, resolving each field's dependencies against the results completed
// so far in this run. Per-field failures are reported through onError and
// do not abort the run; cancellation stops the run immediately. Returns
// true when the run was cancelled, false when it ran to completion.
func (p *Processor) ProcessAllFields(ctx context.Context, fields []*models.Field, onResult ResultFunc, onError ErrorFunc) bool {
	ordered := make([]*models.Field, len(fields))
	copy(ordered, fields)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	p.mu.Lock()
	p.processingAll = true
	p.runCancelled = false
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.processingAll = false
		p.mu.Unlock()
	}()

	completed := make(map[string]*models.ProcessedResult, len(ordered))

	for _, field := range ordered {
		if p.cancelled() || ctx.Err() != nil {
			return true
		}

		dependentResults := ResolveDependencies(field, ordered, completed)

		result, err := p.ProcessField(ctx, field, dependentResults)
		if err != nil {
			p.logger.Warn().
				Str("field_id", field.ID).
				Err(err).
				Msg("Field processing failed, continuing run")
			if onError != nil {
				onError(field.ID, err.Error())
			}
			continue
		}
		if result == nil {
			// Cancelled mid-stream: the whole run stops.
			return true
		}

		completed[field.ID] = result
		if onResult != nil {
			onResult(field.ID, result)
		}
	}

	return false
}

// Stop aborts the active job, if any. The local teardown - abort signal,
// stream handle, observable state - happens synchronously before this
// returns; the remote abort notification is fired afterwards without being
// awaited. Calling Stop with no active job is a no-op.
func (p *Processor) Stop() {
	p.mu.Lock()
	job := p.job
	p.job = nil
	p.progress = nil
	p.processingAll = false
	p.runCancelled = true
	var stream io.Closer
	var processingID string
	if job != nil {
		stream = job.stream
		processingID = job.processingID
	}
	p.mu.Unlock()

	if job == nil {
		return
	}

	job.cancel()
	if stream != nil {
		stream.Close()
	}

	if processingID != "" {
		p.notifyAbort(processingID)
	}
}

// Close runs the same teardown as Stop. Call it when the owning scope ends
// so a still-active job does not outlive its host.
func (p *Processor) Close() error {
	p.Stop()
	return nil
}

// ActiveFieldID returns the field currently being processed, or "".
func (p *Processor) ActiveFieldID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job == nil {
		return ""
	}
	return p.job.fieldID
}

// IsProcessing reports whether any job is in flight.
func (p *Processor) IsProcessing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job != nil
}

// IsProcessingAll reports whether a whole-template run is in progress.
func (p *Processor) IsProcessingAll() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processingAll
}

// CurrentProgress returns a copy of the latest progress snapshot, or nil
// when no job is active.
func (p *Processor) CurrentProgress() *models.ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progress == nil {
		return nil
	}
	snapshot := *p.progress
	return &snapshot
}

// replaceJob installs a fresh job as the single active one, synchronously
// tearing down any previous job first.
func (p *Processor) replaceJob(ctx context.Context, fieldID string) *processingJob {
	jobCtx, cancel := context.WithCancel(ctx)
	job := &processingJob{
		fieldID: fieldID,
		ctx:     jobCtx,
		cancel:  cancel,
	}

	p.mu.Lock()
	previous := p.job
	p.job = job
	p.progress = nil
	var previousStream io.Closer
	if previous != nil {
		previousStream = previous.stream
	}
	p.mu.Unlock()

	if previous != nil {
		previous.cancel()
		if previousStream != nil {
			previousStream.Close()
		}
	}

	return job
}

// forgetJob clears the active job if it is still the given one. Natural
// completion and Stop() can race; whoever gets there first wins and the
// other call is a no-op.
func (p *Processor) forgetJob(job *processingJob) {
	job.cancel()

	p.mu.Lock()
	if p.job == job {
		p.job = nil
		p.progress = nil
	}
	p.mu.Unlock()
}

// attachStream hands the open event-stream handle to the job so Stop can
// close it. Returns false when the job was already torn down, in which case
// the handle is closed immediately.
func (p *Processor) attachStream(job *processingJob, stream io.Closer) bool {
	p.mu.Lock()
	if p.job != job || job.ctx.Err() != nil {
		p.mu.Unlock()
		stream.Close()
		return false
	}
	job.stream = stream
	p.mu.Unlock()
	return true
}

// publishProgress replaces the progress snapshot, unless the job is no
// longer the active one.
func (p *Processor) publishProgress(job *processingJob, snapshot *models.ProgressSnapshot) {
	p.mu.Lock()
	if p.job == job {
		p.progress = snapshot
	}
	p.mu.Unlock()
}

func (p *Processor) cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runCancelled
}

// accessToken fetches a bearer token best-effort; transport proceeds
// unauthenticated when the supplier fails.
func (p *Processor) accessToken(ctx context.Context) string {
	if p.tokens == nil {
		return ""
	}
	token, err := p.tokens.AccessToken(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Token acquisition failed, proceeding without bearer token")
		return ""
	}
	return token
}

// notifyAbort tells the worker to release a job's server-side resources.
// This is a detached best-effort call: its failure is logged and never
// propagated, and nothing waits on it.
func (p *Processor) notifyAbort(processingID string) {
	common.SafeGo(p.logger, "abortNotify", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		payload, err := json.Marshal(models.AbortRequest{ProcessingID: processingID})
		if err != nil {
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.transport.AbortURL(), bytes.NewReader(payload))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if token := p.accessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			p.logger.Debug().
				Str("processing_id", processingID).
				Err(err).
				Msg("Abort notification failed")
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		p.logger.Debug().
			Str("processing_id", processingID).
			Int("status", resp.StatusCode).
			Msg("Abort notification sent")
	})
}
