package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFromEnvLocalBackend(t *testing.T) {
	t.Setenv("BACKEND", "local")
	t.Setenv("API_PORT", "8000")
	t.Setenv("LOCAL_DATA_DIR", "/data")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := ReadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, config.Backend)
	assert.Equal(t, "8000", config.API.Port)
	assert.Equal(t, "/data", config.Local.DataDir)
	assert.Equal(t, 100000, config.RowFetchLimit)
	assert.Equal(t, slog.LevelDebug, config.SlogLevel())
}

func TestReadFromEnvRequiresBackendVariables(t *testing.T) {
	t.Setenv("BACKEND", "clickhouse")
	t.Setenv("API_PORT", "8000")

	_, err := ReadFromEnv()
	assert.Error(t, err)
}

func TestReadFromEnvRejectsUnknownBackend(t *testing.T) {
	t.Setenv("BACKEND", "mysql")
	t.Setenv("API_PORT", "8000")

	_, err := ReadFromEnv()
	assert.Error(t, err)
}
