package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-legal-forms/internal/config"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)

	output := buf.String()
	for _, expected := range []string{
		"MCP Legal Forms",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name      string
		config    *config.Config
		wantDebug bool
		wantOut   bool
	}{
		{
			name:      "stdio mode - debug enabled",
			config:    &config.Config{Mode: config.ModeStdio, LogLevel: "debug"},
			wantDebug: true,
			wantOut:   true,
		},
		{
			name:    "stdio mode - debug disabled",
			config:  &config.Config{Mode: config.ModeStdio, LogLevel: "info"},
			wantOut: false,
		},
		{
			name:    "server mode",
			config:  &config.Config{Mode: config.ModeServer, LogLevel: "info"},
			wantOut: true,
		},
		{
			name:    "unknown level falls back to info",
			config:  &config.Config{Mode: config.ModeServer, LogLevel: "chatty"},
			wantOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := setupLogging(tt.config, &buf)

			assert.Equal(t, tt.wantDebug, logger.Enabled(context.Background(), slog.LevelDebug))

			logger.Info("hello")
			assert.Equal(t, tt.wantOut, buf.Len() > 0)
		})
	}
}

func TestNewFormsService(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DocumentDir = dir
	cfg.OutputDir = filepath.Join(dir, "out")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	svc, err := newFormsService(cfg, logger)
	require.NoError(t, err)
	assert.False(t, svc.HasSuggester())
	assert.Len(t, svc.Rules(), 2)

	rulesFile := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, []byte(`rules:
  - name: line
    pattern: "_____"
    token: "$Line"
    literal: true
`), 0o600))
	cfg.RulesFile = rulesFile
	cfg.OllamaURL = "http://127.0.0.1:11434"
	cfg.OllamaModel = "llama3.2"

	svc, err = newFormsService(cfg, logger)
	require.NoError(t, err)
	assert.True(t, svc.HasSuggester())
	require.Len(t, svc.Rules(), 1)
	assert.Equal(t, "line", svc.Rules()[0].Name)

	cfg.RulesFile = filepath.Join(dir, "missing.yaml")
	_, err = newFormsService(cfg, logger)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	err := run(context.Background(), []string{"mcp-legal-forms", "--version"})
	assert.ErrorIs(t, err, config.ErrVersionRequested)

	err = run(context.Background(), []string{"mcp-legal-forms", "--mode=bogus", "--dir", t.TempDir()})
	assert.Error(t, err)
}
