package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldrun/fieldrun/internal/models"
)

// streamOutcome is the result of a single stream attempt.
type streamOutcome struct {
	// terminal is true when the stream reached a terminal state (completed,
	// failed, or cancelled) and no reconnect must happen.
	terminal bool
	result   *models.ProcessedResult
	err      error
}

// streamResult consumes the progress stream for a job until a terminal
// event arrives. Transport-level drops are retried with exponential backoff
// up to the configured budget; application-level error events are terminal
// and never retried. A cancelled stream, or an abort observed at any point,
// yields (nil, nil) - cancellation is not a failure.
func (p *Processor) streamResult(job *processingJob, token string) (*models.ProcessedResult, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		outcome := p.streamOnce(job, token)
		if outcome.terminal {
			return outcome.result, outcome.err
		}

		// Abort can surface as a transport error when the connection is
		// torn down locally; it still resolves as cancellation.
		if job.ctx.Err() != nil {
			return nil, nil
		}

		lastErr = outcome.err
		if attempt >= p.streamRetries {
			return nil, &StreamExhaustedError{Attempts: p.streamRetries, LastErr: lastErr}
		}

		delay := p.backoffUnit * time.Duration(1<<attempt)
		p.logger.Warn().
			Str("field_id", job.fieldID).
			Int("attempt", attempt+1).
			Str("delay", delay.String()).
			Err(lastErr).
			Msg("Progress stream dropped, reconnecting")

		select {
		case <-time.After(delay):
		case <-job.ctx.Done():
			return nil, nil
		}
	}
}

// streamOnce opens one event-source connection and consumes it until a
// terminal event, a transport failure, or an abort.
func (p *Processor) streamOnce(job *processingJob, token string) streamOutcome {
	url := p.transport.StreamURL(job.fieldID, job.processingID, token)

	req, err := http.NewRequestWithContext(job.ctx, http.MethodGet, url, nil)
	if err != nil {
		return streamOutcome{err: fmt.Errorf("build stream request: %w", err)}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if job.ctx.Err() != nil {
			return streamOutcome{terminal: true}
		}
		return streamOutcome{err: fmt.Errorf("open stream: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return streamOutcome{err: fmt.Errorf("stream returned status %d", resp.StatusCode)}
	}

	// Hand the stream to the job so Stop() can close it synchronously.
	if !p.attachStream(job, resp.Body) {
		return streamOutcome{terminal: true}
	}

	var (
		done         bool
		result       *models.ProcessedResult
		terminalErr  error
		transportErr error
	)

	readErr := readEvents(resp.Body, func(event serverEvent) bool {
		switch event.Name {
		case models.StreamEventProgress:
			var progress models.ProgressEvent
			if err := json.Unmarshal(event.Data, &progress); err != nil {
				// Malformed progress payloads are skipped, best-effort UX.
				return true
			}
			p.publishProgress(job, &models.ProgressSnapshot{
				Stage:    progress.Stage,
				Progress: progress.Progress,
				Message:  progress.Message,
			})
			return true

		case models.StreamEventCompleted:
			completed := &models.ProcessedResult{}
			var payload models.CompletedEvent
			if err := json.Unmarshal(event.Data, &payload); err == nil {
				completed = &models.ProcessedResult{
					Text:             payload.Results.Response,
					LineMap:          payload.Results.LineMap,
					EvidenceAnalysis: payload.Results.EvidenceAnalysis,
				}
			}
			// A malformed completed payload still resolves, with an empty
			// result, rather than failing the whole job.
			result = completed
			done = true
			return false

		case models.StreamEventError:
			var failure models.ErrorEvent
			if err := json.Unmarshal(event.Data, &failure); err != nil || failure.Error == "" {
				// No parseable payload means a transport-level error event;
				// fall through to the reconnect path.
				transportErr = fmt.Errorf("stream error event without payload")
				return false
			}
			terminalErr = &StreamFailedError{Message: failure.Error}
			done = true
			return false

		case models.StreamEventCancelled:
			// Terminal, resolved as null, not an error.
			done = true
			return false

		default:
			// Pings and unknown events keep the connection alive.
			return true
		}
	})

	if done {
		return streamOutcome{terminal: true, result: result, err: terminalErr}
	}
	if job.ctx.Err() != nil {
		return streamOutcome{terminal: true}
	}
	if transportErr != nil {
		return streamOutcome{err: transportErr}
	}
	if readErr != nil {
		return streamOutcome{err: fmt.Errorf("read stream: %w", readErr)}
	}
	return streamOutcome{err: fmt.Errorf("stream closed before terminal event")}
}
