package models

import "time"

// Stream event names. The progress stream carries exactly this vocabulary;
// after a terminal event (completed, error, cancelled) no further events are
// emitted for a processing id.
const (
	StreamEventProgress  = "progress"
	StreamEventCompleted = "completed"
	StreamEventError     = "error"
	StreamEventCancelled = "cancelled"
	StreamEventPing      = "ping"
)

// Processing stages reported over the progress stream.
const (
	StagePreparing  = "preparing"
	StageAnalyzing  = "analyzing"
	StageExtracting = "extracting"
	StageFormatting = "formatting"
)

// ProgressSnapshot reflects the most recent progress event for the active
// job. It is replaced wholesale on each event and cleared when no job is
// active.
type ProgressSnapshot struct {
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// DependentResult is a prior field's completed output reformatted for
// inclusion in a later field's start request. Response is a newline-joined
// text blob for text fields, or the JSON serialization of the first
// structured result item for table/chart fields.
type DependentResult struct {
	FieldID   string     `json:"field_id"`
	FieldName string     `json:"field_name"`
	FieldType OutputType `json:"field_type"`
	Response  string     `json:"response"`
}

// SourceLine locates one cited line in a source document.
type SourceLine struct {
	DocumentID string `json:"document_id"`
	LineNumber int    `json:"line_number"`
	Content    string `json:"content,omitempty"`
}

// EvidenceAnalysis is an optional sufficiency report the extraction engine
// attaches when it can judge how well the documents support the answer.
type EvidenceAnalysis struct {
	Sufficient bool   `json:"sufficient"`
	Confidence string `json:"confidence,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ProcessedResult is the terminal output of a completed job. Text holds the
// ordered response lines, LineMap maps citation tags to source lines.
type ProcessedResult struct {
	Text             []string              `json:"text"`
	LineMap          map[string]SourceLine `json:"line_map,omitempty"`
	EvidenceAnalysis *EvidenceAnalysis     `json:"evidence_analysis,omitempty"`
}

// StartRequest is the job-start payload posted to the worker.
type StartRequest struct {
	FieldID          string            `json:"field_id"`
	FieldName        string            `json:"field_name"`
	FieldDescription string            `json:"field_description"`
	DocumentIDs      []string          `json:"document_ids"`
	Project          ProjectSnapshot   `json:"project"`
	Template         TemplateSnapshot  `json:"template"`
	OutputFormat     OutputType        `json:"output_format"`
	ExecutionMode    string            `json:"execution_mode"`
	DependentResults []DependentResult `json:"dependent_results,omitempty"`
}

// AbortRequest asks the worker to release a running job. The response is
// best-effort and never awaited for correctness.
type AbortRequest struct {
	ProcessingID string `json:"processing_id"`
}

// ProgressEvent is the payload of a "progress" stream event.
type ProgressEvent struct {
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// CompletedEvent is the payload of a "completed" stream event.
type CompletedEvent struct {
	Results CompletedResults `json:"results"`
}

// CompletedResults is the embedded results envelope of a completed event.
type CompletedResults struct {
	Response         []string              `json:"response"`
	LineMap          map[string]SourceLine `json:"line_map,omitempty"`
	EvidenceAnalysis *EvidenceAnalysis     `json:"evidence_analysis,omitempty"`
}

// ErrorEvent is the payload of an "error" stream event.
type ErrorEvent struct {
	Error string `json:"error"`
}

// ExtractionResult is the persisted record of a completed extraction,
// one per (template, field, run).
type ExtractionResult struct {
	ID           string    `json:"id" badgerhold:"key"`
	ProjectID    string    `json:"project_id" badgerhold:"index"`
	TemplateID   string    `json:"template_id" badgerhold:"index"`
	FieldID      string    `json:"field_id" badgerhold:"index"`
	ProcessingID string    `json:"processing_id"`
	Result       ProcessedResult `json:"result"`
	CreatedAt    time.Time `json:"created_at"`
}

// JobStatus is the lifecycle state of a worker-side processing job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)
