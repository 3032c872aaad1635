package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
	"github.com/fieldrun/fieldrun/internal/services/events"
	"github.com/fieldrun/fieldrun/internal/worker"
)

// mockLLM returns a canned completion.
type mockLLM struct {
	response string
	err      error
}

func (m *mockLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return m.response, m.err
}

func (m *mockLLM) GetModelName() string { return "mock-model" }
func (m *mockLLM) Close() error         { return nil }

// mockStorage provides just enough of StorageManager for the engine:
// document lookup and result persistence.
type mockStorage struct {
	docs    map[string]*models.Document
	results []*models.ExtractionResult
}

func newMockStorage(docs ...*models.Document) *mockStorage {
	m := &mockStorage{docs: make(map[string]*models.Document)}
	for _, doc := range docs {
		m.docs[doc.ID] = doc
	}
	return m
}

func (m *mockStorage) ProjectStorage() interfaces.ProjectStorage   { return nil }
func (m *mockStorage) TemplateStorage() interfaces.TemplateStorage { return nil }
func (m *mockStorage) DocumentStorage() interfaces.DocumentStorage { return m }
func (m *mockStorage) ResultStorage() interfaces.ResultStorage     { return m }
func (m *mockStorage) KeyValueStorage() interfaces.KeyValueStorage { return nil }
func (m *mockStorage) Close() error                                { return nil }

func (m *mockStorage) SaveDocument(doc *models.Document) error { return nil }
func (m *mockStorage) GetDocument(id string) (*models.Document, error) {
	return m.docs[id], nil
}
func (m *mockStorage) GetDocuments(ids []string) ([]*models.Document, error) {
	var docs []*models.Document
	for _, id := range ids {
		if doc, ok := m.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
func (m *mockStorage) ListDocuments(projectID string) ([]*models.Document, error) { return nil, nil }
func (m *mockStorage) DeleteDocument(id string) error                             { return nil }

func (m *mockStorage) SaveResult(result *models.ExtractionResult) error {
	m.results = append(m.results, result)
	return nil
}
func (m *mockStorage) GetResult(id string) (*models.ExtractionResult, error) { return nil, nil }
func (m *mockStorage) GetLatestResultForField(fieldID string) (*models.ExtractionResult, error) {
	return nil, nil
}
func (m *mockStorage) ListResults(templateID string) ([]*models.ExtractionResult, error) {
	return nil, nil
}
func (m *mockStorage) DeleteResults(templateID string) error { return nil }

func newTestHandler(t *testing.T, llm interfaces.LLMService) (*ProcessHandler, *mockStorage) {
	logger := arbor.NewLogger()
	storage := newMockStorage(&models.Document{
		ID:    "doc-1",
		Name:  "report.txt",
		Lines: []string{"revenue was 10m"},
	})

	config := &common.ProcessingConfig{RateLimitRPS: 100, RateBurst: 100}
	engine := worker.NewEngine(config, storage, llm, events.NewService(logger), logger)

	return NewProcessHandler(engine, logger), storage
}

func startJob(t *testing.T, h *ProcessHandler) string {
	t.Helper()

	body, _ := json.Marshal(models.StartRequest{
		FieldID:      "fld-1",
		FieldName:    "Revenue",
		DocumentIDs:  []string{"doc-1"},
		OutputFormat: models.OutputTypeText,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	h.StartHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp["processingId"])
	return resp["processingId"]
}

func TestStartHandler_ReturnsProcessingID(t *testing.T) {
	h, _ := newTestHandler(t, &mockLLM{response: "10m [cite:1]"})
	processingID := startJob(t, h)
	assert.True(t, strings.HasPrefix(processingID, "proc_"))
}

func TestStartHandler_RejectsMissingFieldID(t *testing.T) {
	h, _ := newTestHandler(t, &mockLLM{response: "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.StartHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamHandler_DeliversTerminalEvent(t *testing.T) {
	h, storage := newTestHandler(t, &mockLLM{response: "Revenue was 10m [cite:1]"})
	processingID := startJob(t, h)

	// The job runs in the background; the stream replays history, so
	// attaching after completion still yields the full event sequence.
	var body string
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet,
			"/api/process/fld-1/stream?processing_id="+processingID, nil)
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		rec := httptest.NewRecorder()

		h.StreamHandler("fld-1")(rec, req.WithContext(ctx))
		body = rec.Body.String()
		return strings.Contains(body, "event: completed")
	}, 5*time.Second, 50*time.Millisecond)

	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"stage":"preparing"`)
	assert.Contains(t, body, "Revenue was 10m")

	// The completed extraction was persisted.
	require.Eventually(t, func() bool {
		return len(storage.results) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "fld-1", storage.results[0].FieldID)
}

func TestStreamHandler_FallsBackToFieldLookup(t *testing.T) {
	h, _ := newTestHandler(t, &mockLLM{response: "x"})
	startJob(t, h)

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/process/fld-1/stream", nil)
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		rec := httptest.NewRecorder()

		h.StreamHandler("fld-1")(rec, req.WithContext(ctx))
		return strings.Contains(rec.Body.String(), "event: completed")
	}, 5*time.Second, 50*time.Millisecond)
}

func TestStreamHandler_UnknownJob(t *testing.T) {
	h, _ := newTestHandler(t, &mockLLM{response: "x"})

	req := httptest.NewRequest(http.MethodGet, "/api/process/fld-9/stream?processing_id=proc_nope", nil)
	rec := httptest.NewRecorder()
	h.StreamHandler("fld-9")(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAbortHandler_AlwaysSucceeds(t *testing.T) {
	h, _ := newTestHandler(t, &mockLLM{response: "x"})

	// Unknown id still gets a success response.
	req := httptest.NewRequest(http.MethodPost, "/api/process/abort",
		strings.NewReader(`{"processing_id":"proc_nope"}`))
	rec := httptest.NewRecorder()
	h.AbortHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// So does a garbage body.
	req = httptest.NewRequest(http.MethodPost, "/api/process/abort", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	h.AbortHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamHandler_ErrorEventOnLLMFailure(t *testing.T) {
	h, _ := newTestHandler(t, &mockLLM{err: context.DeadlineExceeded})
	processingID := startJob(t, h)

	var body string
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet,
			"/api/process/fld-1/stream?processing_id="+processingID, nil)
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		rec := httptest.NewRecorder()

		h.StreamHandler("fld-1")(rec, req.WithContext(ctx))
		body = rec.Body.String()
		return strings.Contains(body, "event: error")
	}, 5*time.Second, 50*time.Millisecond)

	assert.Contains(t, body, "extraction failed")
}
