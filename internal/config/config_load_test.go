package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("mcp-legal-forms", []string{"--dir", dir})
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, dir, cfg.DocumentDir)
	assert.Equal(t, filepath.Join(dir, "templates"), cfg.OutputDir)
	assert.DirExists(t, cfg.OutputDir)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
}

func TestLoad_Flags(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	cfg, err := Load("mcp-legal-forms", []string{
		"--mode=server",
		"--port=9090",
		"--dir=" + dir,
		"--output=" + out,
		"--workers=8",
		"--label-words=5",
		"--context-max-length=60",
		"--ollama-model=llama3.2",
		"--log-level=debug",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsServerMode())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, out, cfg.OutputDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 5, cfg.DetectorOptions().LabelWords)
	assert.Equal(t, 60, cfg.DetectorOptions().Context.MaxLength)
	assert.True(t, cfg.SuggestionsEnabled())
	assert.True(t, cfg.IsDebug())
}

func TestLoad_Environment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MCP_FORMS_DIR", dir)
	t.Setenv("MCP_FORMS_MIN_BLANK_RUN", "4")
	t.Setenv("MCP_FORMS_LOG_LEVEL", "warn")

	cfg, err := Load("mcp-legal-forms", nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DocumentDir)
	assert.Equal(t, 4, cfg.MinBlankRun)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg, err = Load("mcp-legal-forms", []string{"--log-level=error"})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "forms.yaml")
	require.NoError(t, os.WriteFile(file, []byte("dir: "+dir+"\nheader-min-length: 6\nworkers: 2\n"), 0o600))

	cfg, err := Load("mcp-legal-forms", []string{"--config", file, "--workers=3"})
	require.NoError(t, err)
	assert.Equal(t, file, cfg.ConfigFile)
	assert.Equal(t, dir, cfg.DocumentDir)
	assert.Equal(t, 6, cfg.HeaderMinLength)
	assert.Equal(t, 3, cfg.Workers)

	_, err = Load("mcp-legal-forms", []string{"--config", filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("mcp-legal-forms", []string{"--version"})
	assert.ErrorIs(t, err, ErrVersionRequested)

	_, err = Load("mcp-legal-forms", []string{"--dir", t.TempDir(), "--mode=bogus"})
	assert.ErrorContains(t, err, "invalid configuration")

	_, err = Load("mcp-legal-forms", []string{"--unknown-flag"})
	assert.Error(t, err)
}
