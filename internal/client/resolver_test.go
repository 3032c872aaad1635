package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldrun/fieldrun/internal/models"
)

func makeField(id string, position int, outputType models.OutputType, deps ...string) *models.Field {
	return &models.Field{
		ID:           id,
		Name:         "Field " + id,
		OutputType:   outputType,
		Position:     position,
		Dependencies: deps,
	}
}

func textResult(lines ...string) *models.ProcessedResult {
	return &models.ProcessedResult{Text: lines}
}

func TestResolveDependencies_DefaultsToEarlierFields(t *testing.T) {
	fields := []*models.Field{
		makeField("a", 1, models.OutputTypeText),
		makeField("b", 2, models.OutputTypeText),
		makeField("c", 3, models.OutputTypeText),
	}
	completed := map[string]*models.ProcessedResult{
		"a": textResult("alpha"),
		"b": textResult("beta"),
	}

	got := ResolveDependencies(fields[2], fields, completed)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].FieldID)
	assert.Equal(t, "b", got[1].FieldID)
}

func TestResolveDependencies_ExplicitListKeepsListedOrder(t *testing.T) {
	fields := []*models.Field{
		makeField("a", 1, models.OutputTypeText),
		makeField("b", 2, models.OutputTypeText),
		makeField("c", 3, models.OutputTypeText),
		makeField("d", 4, models.OutputTypeText, "c", "a"),
	}
	completed := map[string]*models.ProcessedResult{
		"a": textResult("alpha"),
		"b": textResult("beta"),
		"c": textResult("gamma"),
	}

	got := ResolveDependencies(fields[3], fields, completed)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].FieldID, "explicit list order wins over position order")
	assert.Equal(t, "a", got[1].FieldID)
}

func TestResolveDependencies_SkipsIncompleteAndUnknown(t *testing.T) {
	fields := []*models.Field{
		makeField("a", 1, models.OutputTypeText),
		makeField("b", 2, models.OutputTypeText),
		makeField("d", 4, models.OutputTypeText, "a", "missing", "b"),
	}
	completed := map[string]*models.ProcessedResult{
		"a": textResult("alpha"),
		// "b" has not completed yet.
	}

	got := ResolveDependencies(fields[2], fields, completed)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].FieldID)
}

func TestResolveDependencies_SerializesByOutputType(t *testing.T) {
	fields := []*models.Field{
		makeField("text", 1, models.OutputTypeText),
		makeField("table", 2, models.OutputTypeTable),
		makeField("sink", 3, models.OutputTypeText),
	}
	completed := map[string]*models.ProcessedResult{
		"text":  textResult("first line", "second line"),
		"table": textResult(`{"columns":["x"],"rows":[[1]]}`, `{"columns":["y"],"rows":[[2]]}`),
	}

	got := ResolveDependencies(fields[2], fields, completed)
	require.Len(t, got, 2)

	assert.Equal(t, "first line\nsecond line", got[0].Response, "text output joins lines")
	assert.Equal(t, `{"columns":["x"],"rows":[[1]]}`, got[1].Response, "structured output passes the first item through")
	assert.Equal(t, models.OutputTypeTable, got[1].FieldType)
}

func TestResolveDependencies_FirstFieldHasNone(t *testing.T) {
	fields := []*models.Field{
		makeField("a", 1, models.OutputTypeText),
		makeField("b", 2, models.OutputTypeText),
	}

	got := ResolveDependencies(fields[0], fields, map[string]*models.ProcessedResult{})
	assert.Empty(t, got)
}
