package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"TASKBOARD_GITHUB_TOKEN", "GITHUB_TOKEN", "TASKBOARD_GITHUB_REPO", "TASKBOARD_SHEET_ID", "TASKBOARD_DB", "LOG_LEVEL", "LOG_ENCODING"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("HOME", t.TempDir())

	// Load picks up .env from the working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, "6c757d", cfg.GitHub.Labels.Backlog)
	require.Equal(t, "Tasks!A1:I", cfg.Sheets.Range)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Encoding)
	require.Equal(t, dbFile, filepath.Base(cfg.Store.Path))
	require.Empty(t, cfg.GitHub.Repository())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := &Config{}
	require.NoError(t, cfg.GitHub.SetRepository("acme/board"))
	cfg.GitHub.Token = "secret"
	cfg.GitHub.Labels.Done = "00ff00"
	require.NoError(t, SaveFile(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "acme/board", loaded.GitHub.Repository())
	require.Equal(t, "secret", loaded.GitHub.Token)
	require.Equal(t, "00ff00", loaded.GitHub.Labels.Done)
	require.Equal(t, "ffc107", loaded.GitHub.Labels.InProgress)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "from-env")
	t.Setenv("TASKBOARD_GITHUB_REPO", "octo/tasks")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.GitHub.Token)
	require.Equal(t, "octo", cfg.GitHub.Owner)
	require.Equal(t, "tasks", cfg.GitHub.Repo)
	require.Equal(t, "debug", cfg.Log.Level)

	t.Setenv("TASKBOARD_GITHUB_REPO", "not-a-repo")
	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestEnvFile(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("TASKBOARD_SHEET_ID=sheet-123\n"), 0600))

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
}

func TestSetRepository(t *testing.T) {
	var g GitHubConfig
	require.Error(t, g.SetRepository("missing-slash"))
	require.Error(t, g.SetRepository("/repo"))
	require.Error(t, g.SetRepository("a/b/c"))
	require.NoError(t, g.SetRepository(" acme/web "))
	require.Equal(t, "acme/web", g.Repository())
}
