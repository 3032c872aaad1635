package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldrun/fieldrun/internal/interfaces"
)

func newTestKVStorage(t *testing.T) interfaces.KeyValueStorage {
	t.Helper()
	return newTestManager(t).KeyValueStorage()
}

func TestKVStorage_SetAndGet(t *testing.T) {
	kv := newTestKVStorage(t)

	require.NoError(t, kv.Set("anthropic_api_key", "sk-test-123"))

	value, err := kv.Get("anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", value)
}

func TestKVStorage_GetMissingReturnsEmpty(t *testing.T) {
	kv := newTestKVStorage(t)

	value, err := kv.Get("no-such-key")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestKVStorage_SetOverwrites(t *testing.T) {
	kv := newTestKVStorage(t)

	require.NoError(t, kv.Set("theme", "light"))
	require.NoError(t, kv.Set("theme", "dark"))

	value, err := kv.Get("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value)
}

func TestKVStorage_Delete(t *testing.T) {
	kv := newTestKVStorage(t)

	require.NoError(t, kv.Set("temp", "value"))
	require.NoError(t, kv.Delete("temp"))

	value, err := kv.Get("temp")
	require.NoError(t, err)
	assert.Empty(t, value)

	// deleting an absent key is not an error
	require.NoError(t, kv.Delete("temp"))
}
