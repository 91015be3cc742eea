package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/a3tai/mcp-legal-forms/internal/config"
	"github.com/a3tai/mcp-legal-forms/internal/fields"
	"github.com/a3tai/mcp-legal-forms/internal/forms"
	"github.com/a3tai/mcp-legal-forms/internal/httpapi"
	"github.com/a3tai/mcp-legal-forms/internal/intelligence"
	"github.com/a3tai/mcp-legal-forms/internal/llm"
	"github.com/a3tai/mcp-legal-forms/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the process logger. In stdio mode stdout carries the
// MCP protocol, so logs go to stderr and only when debug is enabled.
func setupLogging(cfg *config.Config, stderr io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	out := stderr
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		out = io.Discard
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// newSuggester connects the placeholder assistant when a model is configured
func newSuggester(cfg *config.Config, logger *slog.Logger) (forms.Suggester, error) {
	if !cfg.SuggestionsEnabled() {
		return nil, nil
	}

	client, err := llm.NewOllamaClient(cfg.OllamaURL, nil)
	if err != nil {
		return nil, err
	}

	logDir := cfg.LLMLogDir
	if logDir == "" {
		logDir = filepath.Join(cfg.OutputDir, "llm_responses")
	}

	return llm.NewAssistant(client, llm.Config{
		Model:  cfg.OllamaModel,
		LogDir: logDir,
		Logger: logger,
	})
}

// newFormsService wires the form service from the configuration
func newFormsService(cfg *config.Config, logger *slog.Logger) (*forms.Service, error) {
	var rules []fields.PlaceholderRule
	if cfg.RulesFile != "" {
		loaded, err := fields.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	var categoryRules []intelligence.ClassificationRule
	if cfg.CategoryRulesFile != "" {
		loaded, err := intelligence.LoadRules(cfg.CategoryRulesFile)
		if err != nil {
			return nil, err
		}
		categoryRules = loaded
	}

	suggester, err := newSuggester(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up placeholder suggestions: %w", err)
	}

	return forms.NewService(forms.Config{
		DocumentDir:   cfg.DocumentDir,
		OutputDir:     cfg.OutputDir,
		MaxFileSize:   cfg.MaxFileSize,
		Workers:       cfg.Workers,
		Detector:      cfg.DetectorOptions(),
		Rules:         rules,
		CategoryRules: categoryRules,
		Suggester:     suggester,
		Logger:        logger,
	})
}

// runServerMode serves the HTTP gateway, with MCP over SSE mounted on it,
// until a shutdown signal arrives
func runServerMode(ctx context.Context, cfg *config.Config, svc *forms.Service, server *mcp.Server, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	handler := httpapi.NewHandler(svc, logger, server.SSEHandler())
	httpServer := httpapi.NewServer(cfg.Address(), handler.Router(), logger)
	if err := httpServer.Run(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// runStdioMode serves MCP on stdin and stdout. The parent process controls
// the lifecycle.
func runStdioMode(ctx context.Context, server *mcp.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args[0], args[1:])
	if err != nil {
		return err
	}

	logger := setupLogging(cfg, os.Stderr)
	slog.SetDefault(logger)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}
	logger.Debug("starting", "config", cfg.String())

	svc, err := newFormsService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create form service: %w", err)
	}

	server, err := mcp.NewServer(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if cfg.IsServerMode() {
		return runServerMode(ctx, cfg, svc, server, logger)
	}
	return runStdioMode(ctx, server)
}

func main() {
	err := run(context.Background(), os.Args)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		printVersion(os.Stdout)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Legal Forms\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
