package worker

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

const systemPrompt = `You are a document analysis assistant. Answer using only the
numbered source lines provided. After each statement that draws on a source line,
append a citation tag of the form [cite:N] where N is the line number. If the
documents do not contain the answer, say so plainly.`

const tablePromptSuffix = `Return the result as a single JSON object on one line with
"columns" (array of column names) and "rows" (array of row arrays). No prose.`

const chartPromptSuffix = `Return the result as a single JSON object on one line with
"labels" (array) and "series" (array of {"name", "values"}). No prose.`

// citeTag matches the [cite:N] citation markers the model is instructed to
// emit. Line numbers are global across the concatenated documents.
var citeTag = regexp.MustCompile(`\[cite:(\d+)\]`)

// buildMessages assembles the chat exchange for one extraction: system
// instructions, the numbered document corpus, dependent-field context, and
// the field question itself.
func buildMessages(req *models.StartRequest, docs []*models.Document) []interfaces.Message {
	var sb strings.Builder

	sb.WriteString("SOURCE DOCUMENTS\n")
	lineNo := 1
	for _, doc := range docs {
		fmt.Fprintf(&sb, "\n--- %s ---\n", doc.Name)
		for _, line := range doc.Lines {
			fmt.Fprintf(&sb, "%d: %s\n", lineNo, line)
			lineNo++
		}
	}

	if len(req.DependentResults) > 0 {
		sb.WriteString("\nCONTEXT FROM RELATED FIELDS\n")
		for _, dep := range req.DependentResults {
			fmt.Fprintf(&sb, "\n%s (%s):\n%s\n", dep.FieldName, dep.FieldType, dep.Response)
		}
	}

	sb.WriteString("\nQUESTION\n")
	fmt.Fprintf(&sb, "Field: %s\n", req.FieldName)
	if req.FieldDescription != "" {
		fmt.Fprintf(&sb, "Instructions: %s\n", req.FieldDescription)
	}

	switch req.OutputFormat {
	case models.OutputTypeTable:
		sb.WriteString("\n" + tablePromptSuffix + "\n")
	case models.OutputTypeChart:
		sb.WriteString("\n" + chartPromptSuffix + "\n")
	}

	return []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

// parseModelResponse converts a raw model reply into a ProcessedResult.
// Text fields keep their lines and resolve [cite:N] tags against the global
// line numbering used in the prompt. Table and chart fields are reduced to a
// single pre-serialized JSON line so downstream consumers never re-encode.
func parseModelResponse(format models.OutputType, response string, docs []*models.Document) *models.ProcessedResult {
	switch format {
	case models.OutputTypeTable, models.OutputTypeChart:
		return parseStructuredResponse(response)
	default:
		return parseTextResponse(response, docs)
	}
}

func parseTextResponse(response string, docs []*models.Document) *models.ProcessedResult {
	lineMap := make(map[string]models.SourceLine)

	raw := strings.Split(strings.TrimSpace(response), "\n")
	text := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		for _, match := range citeTag.FindAllStringSubmatch(line, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if src, ok := locateLine(docs, n); ok {
				lineMap[match[1]] = src
			}
		}
		text = append(text, line)
	}

	result := &models.ProcessedResult{Text: text}
	if len(lineMap) > 0 {
		result.LineMap = lineMap
		result.EvidenceAnalysis = &models.EvidenceAnalysis{
			Sufficient: true,
			Confidence: confidenceFor(len(lineMap)),
		}
	}
	return result
}

// parseStructuredResponse extracts the JSON object from a table/chart reply.
// Models occasionally wrap the object in a code fence or a line of prose, so
// scan for the outermost braces rather than trusting the whole reply.
func parseStructuredResponse(response string) *models.ProcessedResult {
	trimmed := strings.TrimSpace(response)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return &models.ProcessedResult{Text: []string{trimmed}}
	}

	candidate := trimmed[start : end+1]
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return &models.ProcessedResult{Text: []string{trimmed}}
	}

	compact, err := json.Marshal(obj)
	if err != nil {
		return &models.ProcessedResult{Text: []string{candidate}}
	}
	return &models.ProcessedResult{Text: []string{string(compact)}}
}

// locateLine maps a global 1-based line number back to its document.
func locateLine(docs []*models.Document, n int) (models.SourceLine, bool) {
	if n < 1 {
		return models.SourceLine{}, false
	}
	remaining := n
	for _, doc := range docs {
		if remaining <= len(doc.Lines) {
			return models.SourceLine{
				DocumentID: doc.ID,
				LineNumber: remaining,
				Content:    doc.Lines[remaining-1],
			}, true
		}
		remaining -= len(doc.Lines)
	}
	return models.SourceLine{}, false
}

func confidenceFor(citations int) string {
	switch {
	case citations >= 5:
		return "high"
	case citations >= 2:
		return "medium"
	default:
		return "low"
	}
}
