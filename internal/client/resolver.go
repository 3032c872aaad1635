package client

import (
	"sort"
	"strings"

	"github.com/fieldrun/fieldrun/internal/models"
)

// ResolveDependencies computes the ordered dependent-result payloads for a
// field about to be processed.
//
// A field with an explicit dependency list resolves each listed id in listed
// order. Without one, it depends on every field positioned strictly before
// it in template order. Either way, ids with no completed result yet, or
// that no longer exist among the known fields, are skipped rather than
// erroring: the job simply runs with the context that is available.
func ResolveDependencies(field *models.Field, fields []*models.Field, completed map[string]*models.ProcessedResult) []models.DependentResult {
	if field == nil {
		return nil
	}

	byID := make(map[string]*models.Field, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}

	var order []string
	if len(field.Dependencies) > 0 {
		order = field.Dependencies
	} else {
		earlier := make([]*models.Field, 0, len(fields))
		for _, f := range fields {
			if f.ID != field.ID && f.Position < field.Position {
				earlier = append(earlier, f)
			}
		}
		sort.SliceStable(earlier, func(i, j int) bool {
			return earlier[i].Position < earlier[j].Position
		})
		for _, f := range earlier {
			order = append(order, f.ID)
		}
	}

	results := make([]models.DependentResult, 0, len(order))
	for _, id := range order {
		upstream, known := byID[id]
		result, done := completed[id]
		if !known || !done || result == nil {
			continue
		}
		results = append(results, models.DependentResult{
			FieldID:   upstream.ID,
			FieldName: upstream.Name,
			FieldType: upstream.OutputType,
			Response:  serializeResponse(upstream.OutputType, result),
		})
	}
	return results
}

// serializeResponse flattens a completed result for transport: structured
// outputs (table, chart) pass their first result item through as JSON text,
// plain text outputs join their lines with newlines. The extraction engine
// emits structured items pre-serialized, one JSON document per line.
func serializeResponse(outputType models.OutputType, result *models.ProcessedResult) string {
	if len(result.Text) == 0 {
		return ""
	}
	switch outputType {
	case models.OutputTypeTable, models.OutputTypeChart:
		return result.Text[0]
	default:
		return strings.Join(result.Text, "\n")
	}
}
