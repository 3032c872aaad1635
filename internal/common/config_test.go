package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fieldrun.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, "claude", config.LLM.DefaultProvider)
	assert.Equal(t, 3, config.Client.StreamRetries)
	assert.Equal(t, "30s", config.Client.StartTimeout)
}

func TestLoadFromFiles_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 9090

[llm]
default_provider = "gemini"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "gemini", config.LLM.DefaultProvider)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost", config.Server.Host)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	first := writeConfigFile(t, "[server]\nport = 9090\n")
	second := writeConfigFile(t, "[server]\nport = 9191\n")

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 9191, config.Server.Port)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	t.Setenv("FIELDRUN_SERVER_PORT", "7070")
	path := writeConfigFile(t, "[server]\nport = 9090\n")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, config.Server.Port)
}

func TestLoadFromFiles_InvalidProviderRejected(t *testing.T) {
	path := writeConfigFile(t, "[llm]\ndefault_provider = \"gpt4\"\n")

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/fieldrun.toml")
	assert.Error(t, err)
}

func TestStartTimeoutDuration(t *testing.T) {
	c := ClientConfig{StartTimeout: "45s"}
	assert.Equal(t, 45*time.Second, c.StartTimeoutDuration())

	c.StartTimeout = "garbage"
	assert.Equal(t, 30*time.Second, c.StartTimeoutDuration())

	c.StartTimeout = ""
	assert.Equal(t, 30*time.Second, c.StartTimeoutDuration())
}

func TestJobTTLDuration(t *testing.T) {
	p := ProcessingConfig{JobTTL: "10m"}
	assert.Equal(t, 10*time.Minute, p.JobTTLDuration())

	p.JobTTL = ""
	assert.Equal(t, 30*time.Minute, p.JobTTLDuration())
}
