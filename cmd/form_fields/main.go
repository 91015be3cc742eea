// Command form_fields detects fillable fields and writes placeholder
// templates from the command line, without an MCP client.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-legal-forms/internal/fields"
	"github.com/a3tai/mcp-legal-forms/internal/forms"
)

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "detect":
		return runDetect(rest, stdout, stderr)
	case "rewrite":
		return runRewrite(rest, stdout, stderr)
	case "batch":
		return runBatch(ctx, rest, stdout, stderr)
	case "text":
		return runText(rest, stdout, stderr)
	case "metadata":
		return runMetadata(rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  form_fields detect [--format text|json|yaml] <document>")
	fmt.Fprintln(w, "  form_fields rewrite [-o output.docx] <document.docx>")
	fmt.Fprintln(w, "  form_fields batch [--query words] [--workers n] [--format text|json] <directory>")
	fmt.Fprintln(w, "  form_fields text <document>")
	fmt.Fprintln(w, "  form_fields metadata <document>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every command accepts --verbose to log progress to stderr.")
}

// command holds the flags shared by every subcommand
type command struct {
	flags   *pflag.FlagSet
	verbose bool
	stderr  io.Writer
}

func newCommand(name string, stderr io.Writer) *command {
	c := &command{
		flags:  pflag.NewFlagSet(name, pflag.ContinueOnError),
		stderr: stderr,
	}
	c.flags.SetOutput(stderr)
	c.flags.BoolVar(&c.verbose, "verbose", false, "Log progress to stderr")
	return c
}

// parse parses args and returns the single positional argument
func (c *command) parse(args []string) (string, error) {
	if err := c.flags.Parse(args); err != nil {
		return "", errUsage
	}
	if c.flags.NArg() != 1 {
		fmt.Fprintf(c.stderr, "%s: expected exactly one path argument\n", c.flags.Name())
		return "", errUsage
	}
	return c.flags.Arg(0), nil
}

func (c *command) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

// service creates a form service rooted at dir, writing to outputDir
func (c *command) service(dir, outputDir string) (*forms.Service, error) {
	return forms.NewService(forms.Config{
		DocumentDir: dir,
		OutputDir:   outputDir,
		MaxFileSize: 100 * 1024 * 1024,
		Logger:      c.logger(),
	})
}

// serviceFor creates a service rooted at the directory of path and returns
// the absolute path
func (c *command) serviceFor(path, outputPath string) (*forms.Service, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	outputDir := ""
	if outputPath != "" {
		absOut, err := filepath.Abs(outputPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		outputDir = filepath.Dir(absOut)
	}

	svc, err := c.service(filepath.Dir(abs), outputDir)
	if err != nil {
		return nil, "", err
	}
	return svc, abs, nil
}

func runDetect(args []string, stdout, stderr io.Writer) error {
	c := newCommand("detect", stderr)
	format := c.flags.StringP("format", "f", "text", "Output format: text, json, yaml")
	path, err := c.parse(args)
	if err != nil {
		return err
	}

	reportFormat, err := fields.ParseReportFormat(*format)
	if err != nil {
		return err
	}

	svc, abs, err := c.serviceFor(path, "")
	if err != nil {
		return err
	}

	result, err := svc.DetectFields(forms.DetectRequest{Path: abs})
	if err != nil {
		return err
	}
	return fields.WriteReport(stdout, result.Document, reportFormat)
}

func runRewrite(args []string, stdout, stderr io.Writer) error {
	c := newCommand("rewrite", stderr)
	output := c.flags.StringP("output", "o", "", "Template path (default <dir>/templates/<name>)")
	path, err := c.parse(args)
	if err != nil {
		return err
	}

	svc, abs, err := c.serviceFor(path, *output)
	if err != nil {
		return err
	}

	outputPath := *output
	if outputPath != "" {
		if outputPath, err = filepath.Abs(outputPath); err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	result, err := svc.RewritePlaceholders(forms.RewriteRequest{Path: abs, OutputPath: outputPath})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Template written: %s\n", result.OutputPath)
	fmt.Fprintf(stdout, "Paragraphs changed: %d\n", result.Stats.ParagraphsChanged)
	for _, rule := range svc.Rules() {
		if n := result.Stats.ByRule[rule.Name]; n > 0 {
			fmt.Fprintf(stdout, "  %s -> %s: %d\n", rule.Name, rule.Token, n)
		}
	}
	return nil
}

func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := newCommand("batch", stderr)
	query := c.flags.StringP("query", "q", "", "Only documents whose name matches these words")
	workers := c.flags.IntP("workers", "w", 4, "Documents processed concurrently")
	format := c.flags.StringP("format", "f", "text", "Output format: text, json")
	dir, err := c.parse(args)
	if err != nil {
		return err
	}
	if *format != "text" && *format != "json" {
		return fmt.Errorf("unsupported output format: %s", *format)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	svc, err := c.service(abs, "")
	if err != nil {
		return err
	}

	result, err := svc.BatchDetect(ctx, forms.BatchRequest{Directory: abs, Query: *query, Workers: *workers})
	if err != nil {
		return err
	}

	if *format == "json" {
		return writeJSON(stdout, result)
	}

	for _, item := range result.Documents {
		if !item.Success {
			fmt.Fprintf(stdout, "%s: FAILED (%s) %s\n", item.Name, item.ErrorType, item.Error)
			continue
		}
		fmt.Fprintf(stdout, "%s: %d field(s), category %s\n", item.Name, item.Fields, item.Category)
	}
	fmt.Fprintf(stdout, "\n%d succeeded, %d failed, %d field(s) total\n",
		result.Succeeded, result.Failed, result.TotalFields)
	return nil
}

func runText(args []string, stdout, stderr io.Writer) error {
	c := newCommand("text", stderr)
	path, err := c.parse(args)
	if err != nil {
		return err
	}

	svc, abs, err := c.serviceFor(path, "")
	if err != nil {
		return err
	}

	result, err := svc.ExtractText(forms.TextRequest{Path: abs})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, result.Content)
	return err
}

func runMetadata(args []string, stdout, stderr io.Writer) error {
	c := newCommand("metadata", stderr)
	path, err := c.parse(args)
	if err != nil {
		return err
	}

	svc, abs, err := c.serviceFor(path, "")
	if err != nil {
		return err
	}

	result, err := svc.Metadata(forms.MetadataRequest{Path: abs})
	if err != nil {
		return err
	}
	return writeJSON(stdout, result)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
