package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-legal-forms/internal/fields"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultWorkers     = 4

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "MCP_FORMS"
)

// ErrVersionRequested is returned when --version is on the command line
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the legal forms server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	DocumentDir       string
	OutputDir         string
	RulesFile         string
	CategoryRulesFile string
	Workers           int

	// Detection heuristics
	LabelWords       int
	MinBlankRun      int
	HeaderMinLength  int
	ContextWindow    int
	ContextMaxLength int

	// Placeholder suggestions, enabled when OllamaModel is set
	OllamaURL   string
	OllamaModel string
	LLMLogDir   string

	// Application configuration
	ConfigFile  string
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum document size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	opts := fields.DefaultOptions()
	return &Config{
		Mode:             ModeStdio,
		Host:             DefaultHost,
		Port:             DefaultPort,
		DocumentDir:      currentDir,
		Workers:          DefaultWorkers,
		LabelWords:       opts.LabelWords,
		MinBlankRun:      opts.MinBlankRun,
		HeaderMinLength:  opts.HeaderMinLength,
		ContextWindow:    opts.Context.Window,
		ContextMaxLength: opts.Context.MaxLength,
		Version:          "1.0.0",
		ServerName:       "mcp-legal-forms",
		LogLevel:         DefaultLogLevel,
		MaxFileSize:      DefaultMaxFileSize,
	}
}

// LoadFromFlags parses the process command line and environment
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[0], os.Args[1:])
}

// Load builds a configuration from defaults, an optional config file,
// MCP_FORMS_* environment variables and args, in increasing priority
func Load(program string, args []string) (*Config, error) {
	cfg := DefaultConfig()

	if versionRequested(args) {
		return nil, ErrVersionRequested
	}

	v := viper.New()
	setupViperEnvironment(v, cfg)

	flags := pflag.NewFlagSet(program, pflag.ContinueOnError)
	defineCommandLineFlags(flags, cfg)
	flags.Usage = usage(program, flags)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	populateConfigFromViper(v, cfg)

	if cfg.DocumentDir != "" {
		if expandedPath, err := filepath.Abs(cfg.DocumentDir); err == nil {
			cfg.DocumentDir = expandedPath
		}
	}
	if cfg.OutputDir == "" && cfg.DocumentDir != "" {
		cfg.OutputDir = filepath.Join(cfg.DocumentDir, "templates")
	}
	if expandedPath, err := filepath.Abs(cfg.OutputDir); err == nil && cfg.OutputDir != "" {
		cfg.OutputDir = expandedPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.DocumentDir)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("label-words", cfg.LabelWords)
	v.SetDefault("min-blank-run", cfg.MinBlankRun)
	v.SetDefault("header-min-length", cfg.HeaderMinLength)
	v.SetDefault("context-window", cfg.ContextWindow)
	v.SetDefault("context-max-length", cfg.ContextMaxLength)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.String("config", "", "Optional YAML configuration file")
	flags.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	flags.String("host", cfg.Host, "Server host address (server mode only)")
	flags.Int("port", cfg.Port, "Server port (server mode only)")
	flags.String("dir", cfg.DocumentDir, "Directory containing form documents")
	flags.String("output", "", "Directory for placeholder templates (default <dir>/templates)")
	flags.String("rules", "", "YAML file with placeholder rules")
	flags.String("category-rules", "", "YAML file with extra legal area classification rules")
	flags.Int("workers", cfg.Workers, "Documents processed concurrently by batch detection")
	flags.Int("label-words", cfg.LabelWords, "Words kept in blank-field labels")
	flags.Int("min-blank-run", cfg.MinBlankRun, "Shortest underscore run treated as a blank field")
	flags.Int("header-min-length", cfg.HeaderMinLength, "Minimum length of a section header")
	flags.Int("context-window", cfg.ContextWindow, "Fragments searched backward for a section header")
	flags.Int("context-max-length", cfg.ContextMaxLength, "Maximum length of a field context")
	flags.String("ollama-url", "", "Ollama server URL (default OLLAMA_HOST)")
	flags.String("ollama-model", "", "Ollama model used for placeholder suggestions")
	flags.String("llm-log-dir", "", "Directory for model response logs")
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.Int64("max-file-size", cfg.MaxFileSize, "Maximum document size in bytes")
}

// usage returns the custom usage message
func usage(program string, flags *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", program)
		fmt.Fprintf(os.Stderr, "\nMCP Legal Forms - detect fillable fields and write placeholder templates\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                    # stdio mode\n", program)
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/forms      # HTTP server mode\n", program)
		fmt.Fprintf(os.Stderr, "  %s --ollama-model=llama3.2                 # enable placeholder suggestions\n", program)
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_<FLAG>  e.g. %s_DIR, %s_LOG_LEVEL, %s_OLLAMA_MODEL\n",
			EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// versionRequested checks if version flag was requested
func versionRequested(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.ConfigFile = v.GetString("config")
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.DocumentDir = v.GetString("dir")
	cfg.OutputDir = v.GetString("output")
	cfg.RulesFile = v.GetString("rules")
	cfg.CategoryRulesFile = v.GetString("category-rules")
	cfg.Workers = v.GetInt("workers")
	cfg.LabelWords = v.GetInt("label-words")
	cfg.MinBlankRun = v.GetInt("min-blank-run")
	cfg.HeaderMinLength = v.GetInt("header-min-length")
	cfg.ContextWindow = v.GetInt("context-window")
	cfg.ContextMaxLength = v.GetInt("context-max-length")
	cfg.OllamaURL = v.GetString("ollama-url")
	cfg.OllamaModel = v.GetString("ollama-model")
	cfg.LLMLogDir = v.GetString("llm-log-dir")
	cfg.LogLevel = v.GetString("log-level")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
}

// Validate checks if the configuration is valid and creates missing
// directories
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.DocumentDir == "" {
		return errors.New("document directory cannot be empty")
	}
	if err := ensureDirectory(c.DocumentDir); err != nil {
		return err
	}
	if c.OutputDir != "" {
		if err := ensureDirectory(c.OutputDir); err != nil {
			return err
		}
	}

	for _, file := range []string{c.RulesFile, c.CategoryRulesFile} {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("cannot access rules file %s: %w", file, err)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	for name, value := range map[string]int{
		"label-words":        c.LabelWords,
		"min-blank-run":      c.MinBlankRun,
		"header-min-length":  c.HeaderMinLength,
		"context-window":     c.ContextWindow,
		"context-max-length": c.ContextMaxLength,
	} {
		if value < 1 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.OllamaURL != "" {
		u, err := url.Parse(c.OllamaURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid ollama url: %s", c.OllamaURL)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func ensureDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	return nil
}

// DetectorOptions returns the detection heuristics
func (c *Config) DetectorOptions() fields.Options {
	opts := fields.DefaultOptions()
	opts.LabelWords = c.LabelWords
	opts.MinBlankRun = c.MinBlankRun
	opts.HeaderMinLength = c.HeaderMinLength
	opts.Context.Window = c.ContextWindow
	opts.Context.MaxLength = c.ContextMaxLength
	return opts
}

// SuggestionsEnabled reports whether an Ollama model is configured
func (c *Config) SuggestionsEnabled() bool {
	return c.OllamaModel != ""
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DocumentDir: %s, OutputDir: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.DocumentDir, c.OutputDir, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
