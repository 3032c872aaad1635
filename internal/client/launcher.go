package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldrun/fieldrun/internal/models"
)

// startEnvelope tolerates the response shapes of both transport paths: the
// worker returns a flat processingId, the proxy wraps it under data or
// data.result.
type startEnvelope struct {
	ProcessingID string `json:"processingId"`
	Data         *struct {
		ProcessingID string `json:"processingId"`
		Result       *struct {
			ProcessingID string `json:"processingId"`
		} `json:"result"`
	} `json:"data"`
}

// extractProcessingID locates the processing identifier in a start response
// body, checking the flat field first, then data.result, then data.
func extractProcessingID(body []byte) string {
	var envelope startEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.ProcessingID != "" {
		return envelope.ProcessingID
	}
	if envelope.Data != nil {
		if envelope.Data.Result != nil && envelope.Data.Result.ProcessingID != "" {
			return envelope.Data.Result.ProcessingID
		}
		if envelope.Data.ProcessingID != "" {
			return envelope.Data.ProcessingID
		}
	}
	return ""
}

type startOutcome struct {
	processingID string
	err          error
}

// startJob issues the job-start POST for one field and returns the
// server-issued processing identifier. The call races a fixed timeout:
// on timeout only the wait is abandoned, the request itself is left to the
// transport to wind down.
func (p *Processor) startJob(ctx context.Context, field *models.Field, dependentResults []models.DependentResult, token string) (string, error) {
	if field == nil || field.ID == "" {
		return "", fmt.Errorf("field id is required")
	}

	request := models.StartRequest{
		FieldID:          field.ID,
		FieldName:        field.Name,
		FieldDescription: field.Description,
		DocumentIDs:      p.documentIDs,
		Project:          p.project,
		Template:         p.template,
		OutputFormat:     field.OutputType,
		ExecutionMode:    p.executionMode,
		DependentResults: dependentResults,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal start request: %w", err)
	}

	outcome := make(chan startOutcome, 1)
	go func() {
		outcome <- p.doStart(ctx, payload, token)
	}()

	timer := time.NewTimer(p.startTimeout)
	defer timer.Stop()

	select {
	case result := <-outcome:
		return result.processingID, result.err
	case <-timer.C:
		return "", fmt.Errorf("processing start for field %s timed out after %s", field.ID, p.startTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Processor) doStart(ctx context.Context, payload []byte, token string) startOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.transport.StartURL(), bytes.NewReader(payload))
	if err != nil {
		return startOutcome{err: fmt.Errorf("build start request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return startOutcome{err: fmt.Errorf("start request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return startOutcome{err: fmt.Errorf("read start response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return startOutcome{err: &ProcessingStartError{StatusCode: resp.StatusCode, Body: string(body)}}
	}

	processingID := extractProcessingID(body)
	if processingID == "" {
		return startOutcome{err: &MissingProcessingIDError{Body: string(body)}}
	}

	return startOutcome{processingID: processingID}
}
