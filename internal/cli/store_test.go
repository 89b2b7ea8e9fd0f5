package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veryx/veryx/internal/config"
)

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("VERYX_STORE", "sqlite")
	t.Setenv("VERYX_SQLITE_PATH", "/env/veryx.db")

	cfg, err := loadConfig(&StoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	assert.Equal(t, "/env/veryx.db", cfg.SQLitePath)

	cfg, err = loadConfig(&StoreOptions{Path: "/flag/veryx.db"})
	require.NoError(t, err)
	assert.Equal(t, "/flag/veryx.db", cfg.SQLitePath)

	cfg, err = loadConfig(&StoreOptions{Backend: "FILE", Path: "/flag/events.jsonl"})
	require.NoError(t, err)
	assert.Equal(t, config.StoreFile, cfg.Store)
	assert.Equal(t, "/flag/events.jsonl", cfg.FilePath)
	assert.Equal(t, "/env/veryx.db", cfg.SQLitePath)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("VERYX_DATABASE_URL", "")

	_, err := loadConfig(&StoreOptions{Backend: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VERYX_DATABASE_URL")

	_, err = loadConfig(&StoreOptions{Backend: "redis"})
	require.Error(t, err)
}

func TestOpenSession_BadConfigIsCommandError(t *testing.T) {
	_, err := executeCommand(t, "log", "--store", "redis")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenSession_FileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	out, err := executeCommand(t, "log", "--store", "file", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit Log: 0 event(s)")
}
