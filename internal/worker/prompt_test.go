package worker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldrun/fieldrun/internal/models"
)

func testDocs() []*models.Document {
	return []*models.Document{
		{ID: "doc-1", Name: "report.txt", Lines: []string{"revenue was 10m", "costs were 4m"}},
		{ID: "doc-2", Name: "notes.txt", Lines: []string{"margin improved"}},
	}
}

func TestBuildMessages_NumbersLinesGlobally(t *testing.T) {
	req := &models.StartRequest{
		FieldID:      "fld-1",
		FieldName:    "Revenue",
		OutputFormat: models.OutputTypeText,
	}

	messages := buildMessages(req, testDocs())
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)

	prompt := messages[1].Content
	assert.Contains(t, prompt, "1: revenue was 10m")
	assert.Contains(t, prompt, "2: costs were 4m")
	assert.Contains(t, prompt, "3: margin improved", "numbering continues across documents")
	assert.Contains(t, prompt, "Field: Revenue")
}

func TestBuildMessages_IncludesDependentResults(t *testing.T) {
	req := &models.StartRequest{
		FieldID:      "fld-2",
		FieldName:    "Summary",
		OutputFormat: models.OutputTypeText,
		DependentResults: []models.DependentResult{
			{FieldID: "fld-1", FieldName: "Revenue", FieldType: models.OutputTypeText, Response: "10m [cite:1]"},
		},
	}

	messages := buildMessages(req, testDocs())
	prompt := messages[1].Content
	assert.Contains(t, prompt, "CONTEXT FROM RELATED FIELDS")
	assert.Contains(t, prompt, "Revenue (text):")
	assert.Contains(t, prompt, "10m [cite:1]")
}

func TestBuildMessages_StructuredFormatInstructions(t *testing.T) {
	req := &models.StartRequest{
		FieldID:      "fld-1",
		FieldName:    "Breakdown",
		OutputFormat: models.OutputTypeTable,
	}

	messages := buildMessages(req, testDocs())
	assert.Contains(t, messages[1].Content, `"columns"`)
}

func TestParseModelResponse_TextWithCitations(t *testing.T) {
	response := "Revenue was 10m [cite:1]\n\nMargin improved [cite:3]\n"

	result := parseModelResponse(models.OutputTypeText, response, testDocs())
	require.NotNil(t, result)

	assert.Equal(t, []string{"Revenue was 10m [cite:1]", "Margin improved [cite:3]"}, result.Text)

	require.Contains(t, result.LineMap, "1")
	assert.Equal(t, "doc-1", result.LineMap["1"].DocumentID)
	assert.Equal(t, 1, result.LineMap["1"].LineNumber)

	require.Contains(t, result.LineMap, "3")
	assert.Equal(t, "doc-2", result.LineMap["3"].DocumentID, "global line 3 lives in the second document")
	assert.Equal(t, 1, result.LineMap["3"].LineNumber)

	require.NotNil(t, result.EvidenceAnalysis)
	assert.True(t, result.EvidenceAnalysis.Sufficient)
}

func TestParseModelResponse_CitationOutOfRangeSkipped(t *testing.T) {
	result := parseModelResponse(models.OutputTypeText, "claim [cite:99]", testDocs())
	assert.NotContains(t, result.LineMap, "99")
}

func TestParseModelResponse_TableExtractsSingleJSONLine(t *testing.T) {
	response := "Here is the table:\n```json\n{\"columns\": [\"x\"], \"rows\": [[1]]}\n```"

	result := parseModelResponse(models.OutputTypeTable, response, testDocs())
	require.Len(t, result.Text, 1)

	line := result.Text[0]
	assert.True(t, strings.HasPrefix(line, "{"), "structured output is one JSON document")
	assert.Contains(t, line, `"columns"`)
	assert.NotContains(t, line, "```")
}

func TestParseModelResponse_TableWithoutJSONFallsBackToRawText(t *testing.T) {
	result := parseModelResponse(models.OutputTypeTable, "no structured data found", testDocs())
	assert.Equal(t, []string{"no structured data found"}, result.Text)
}
