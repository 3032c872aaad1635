package badger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
	"github.com/fieldrun/fieldrun/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "fieldrun-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestTemplateStorage_SaveAndGet(t *testing.T) {
	storage := newTestManager(t).TemplateStorage()

	template := &models.Template{ID: "tpl_1", ProjectID: "prj_1", Name: "Financials"}
	require.NoError(t, storage.SaveTemplate(template))
	assert.False(t, template.CreatedAt.IsZero())

	got, err := storage.GetTemplate("tpl_1")
	require.NoError(t, err)
	assert.Equal(t, "Financials", got.Name)

	_, err = storage.GetTemplate("tpl_missing")
	assert.Error(t, err)
}

func TestTemplateStorage_ListFieldsOrderedByPosition(t *testing.T) {
	storage := newTestManager(t).TemplateStorage()

	require.NoError(t, storage.SaveTemplate(&models.Template{ID: "tpl_1", ProjectID: "prj_1", Name: "T"}))

	for _, f := range []*models.Field{
		{ID: "fld_c", TemplateID: "tpl_1", Name: "C", Position: 3},
		{ID: "fld_a", TemplateID: "tpl_1", Name: "A", Position: 1},
		{ID: "fld_b", TemplateID: "tpl_1", Name: "B", Position: 2},
		{ID: "fld_x", TemplateID: "tpl_other", Name: "X", Position: 0},
	} {
		require.NoError(t, storage.SaveField(f))
	}

	fields, err := storage.ListFields("tpl_1")
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "fld_a", fields[0].ID)
	assert.Equal(t, "fld_b", fields[1].ID)
	assert.Equal(t, "fld_c", fields[2].ID)
}

func TestTemplateStorage_DeleteTemplateRemovesFields(t *testing.T) {
	storage := newTestManager(t).TemplateStorage()

	require.NoError(t, storage.SaveTemplate(&models.Template{ID: "tpl_1", ProjectID: "prj_1", Name: "T"}))
	require.NoError(t, storage.SaveField(&models.Field{ID: "fld_a", TemplateID: "tpl_1", Name: "A"}))

	require.NoError(t, storage.DeleteTemplate("tpl_1"))

	_, err := storage.GetTemplate("tpl_1")
	assert.Error(t, err)

	fields, err := storage.ListFields("tpl_1")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestTemplateStorage_SaveFieldRequiresTemplateID(t *testing.T) {
	storage := newTestManager(t).TemplateStorage()
	assert.Error(t, storage.SaveField(&models.Field{ID: "fld_a", Name: "A"}))
}

func TestResultStorage_LatestForField(t *testing.T) {
	storage := newTestManager(t).ResultStorage()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, storage.SaveResult(&models.ExtractionResult{
		ID: "res_1", TemplateID: "tpl_1", FieldID: "fld_a",
		Result:    models.ProcessedResult{Text: []string{"old"}},
		CreatedAt: base,
	}))
	require.NoError(t, storage.SaveResult(&models.ExtractionResult{
		ID: "res_2", TemplateID: "tpl_1", FieldID: "fld_a",
		Result:    models.ProcessedResult{Text: []string{"new"}},
		CreatedAt: base.Add(time.Minute),
	}))

	latest, err := storage.GetLatestResultForField("fld_a")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, []string{"new"}, latest.Result.Text)

	none, err := storage.GetLatestResultForField("fld_never")
	require.NoError(t, err)
	assert.Nil(t, none)
}
