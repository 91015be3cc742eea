// Package forms ties document access, field detection and placeholder
// rewriting together behind path-confined operations.
package forms

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/a3tai/mcp-legal-forms/internal/document"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
	"github.com/a3tai/mcp-legal-forms/internal/fields"
	"github.com/a3tai/mcp-legal-forms/internal/intelligence"
	"github.com/a3tai/mcp-legal-forms/internal/llm"
	"github.com/a3tai/mcp-legal-forms/internal/security"
)

// DefaultOutputSubdir is created under the document directory when no output
// directory is configured
const DefaultOutputSubdir = "templates"

// Suggester proposes placeholder names for a field report
type Suggester interface {
	Suggest(ctx context.Context, report fields.Report) (*llm.Result, error)
}

// Config configures a Service. CategoryRules extend the built-in legal area
// classification rules.
type Config struct {
	DocumentDir   string
	OutputDir     string
	MaxFileSize   int64
	Workers       int
	Detector      fields.Options
	Rules         []fields.PlaceholderRule
	CategoryRules []intelligence.ClassificationRule
	Suggester     Suggester
	Logger        *slog.Logger
}

// Service handles form document operations by orchestrating the detector,
// the rewriter and the document adapter
type Service struct {
	documentDir   string
	outputDir     string
	maxFileSize   int64
	workers       int
	detector      *fields.Detector
	rewriter      *fields.Rewriter
	classifier    *intelligence.Classifier
	suggester     Suggester
	pathValidator *security.PathValidator
	logger        *slog.Logger
}

// NewService creates a new form service
func NewService(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.OutputDir == "" && cfg.DocumentDir != "" {
		cfg.OutputDir = filepath.Join(cfg.DocumentDir, DefaultOutputSubdir)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	pathValidator, err := security.NewPathValidator(cfg.DocumentDir, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	rewriter, err := fields.NewRewriter(cfg.Rules, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compile placeholder rules: %w", err)
	}

	classifierCfg := intelligence.DefaultConfig()
	classifierCfg.ExtraRules = cfg.CategoryRules
	classifierCfg.Logger = cfg.Logger
	classifier, err := intelligence.NewClassifier(classifierCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to compile classification rules: %w", err)
	}

	roots := pathValidator.Roots()
	outputDir := roots[0]
	if len(roots) > 1 {
		outputDir = roots[1]
	}

	return &Service{
		documentDir:   pathValidator.BaseDirectory(),
		outputDir:     outputDir,
		maxFileSize:   cfg.MaxFileSize,
		workers:       cfg.Workers,
		detector:      fields.NewDetector(cfg.Detector, cfg.Logger),
		rewriter:      rewriter,
		classifier:    classifier,
		suggester:     cfg.Suggester,
		pathValidator: pathValidator,
		logger:        cfg.Logger,
	}, nil
}

// DocumentDirectory returns the absolute document directory
func (s *Service) DocumentDirectory() string {
	return s.documentDir
}

// OutputDirectory returns the absolute directory templates are written to
func (s *Service) OutputDirectory() string {
	return s.outputDir
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Rules returns the placeholder rules in application order
func (s *Service) Rules() []fields.PlaceholderRule {
	return s.rewriter.Rules()
}

// HasSuggester reports whether placeholder suggestions are available
func (s *Service) HasSuggester() bool {
	return s.suggester != nil
}

// ResolvePath validates path against the configured directories and returns
// its absolute form
func (s *Service) ResolvePath(path string) (string, error) {
	abs, err := s.pathValidator.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	return abs, nil
}

func (s *Service) open(path string) (*document.Document, error) {
	abs, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return document.Open(abs, document.Options{MaxFileSize: s.maxFileSize, Logger: s.logger})
}

// DetectFields finds the fillable fields of a document and classifies it by
// area of law
func (s *Service) DetectFields(req DetectRequest) (*DetectResult, error) {
	return s.detect(context.Background(), req.Path)
}

func (s *Service) detect(ctx context.Context, path string) (*DetectResult, error) {
	doc, err := s.open(path)
	if err != nil {
		return nil, err
	}

	result, err := s.detector.Detect(doc)
	if err != nil {
		return nil, err
	}

	classification, err := s.classifier.Classify(ctx, result, doc.Text())
	if err != nil {
		return nil, err
	}

	return &DetectResult{
		Path:           doc.Path,
		Format:         doc.Format,
		Report:         result.Report(),
		Counts:         result.Counts(),
		Skipped:        result.Skipped,
		Classification: classification,
		Document:       result,
	}, nil
}

// RewritePlaceholders writes a copy of a DOCX document with blanks and empty
// checkboxes replaced by placeholder tokens
func (s *Service) RewritePlaceholders(req RewriteRequest) (*RewriteResult, error) {
	doc, err := s.open(req.Path)
	if err != nil {
		return nil, err
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(s.outputDir, filepath.Base(doc.Path))
	}
	outputPath, err = s.ResolvePath(outputPath)
	if err != nil {
		return nil, err
	}
	if outputPath == doc.Path {
		return nil, ferrors.New(ferrors.ErrorTypeWriteFailure, "output path must differ from the source document").WithPath(outputPath)
	}

	stats, err := s.rewriter.Rewrite(doc)
	if err != nil {
		return nil, err
	}
	if err := doc.Save(outputPath); err != nil {
		return nil, err
	}

	s.logger.Info("placeholder template written",
		"source", doc.Path,
		"output", outputPath,
		"replacements", stats.Replacements)

	return &RewriteResult{
		Path:       doc.Path,
		OutputPath: outputPath,
		Stats:      stats,
	}, nil
}

// ExtractText returns the plain text of a document
func (s *Service) ExtractText(req TextRequest) (*TextResult, error) {
	doc, err := s.open(req.Path)
	if err != nil {
		return nil, err
	}

	content := doc.Text()
	return &TextResult{
		Path:    doc.Path,
		Content: content,
		Length:  len(content),
	}, nil
}

// Metadata returns the properties of a DOCX or PDF document
func (s *Service) Metadata(req MetadataRequest) (*MetadataResult, error) {
	doc, err := s.open(req.Path)
	if err != nil {
		return nil, err
	}

	return &MetadataResult{
		Path:     doc.Path,
		Format:   doc.Format,
		Metadata: doc.Metadata,
	}, nil
}

// UpdatePDFMetadata writes a copy of a PDF with the given document properties
func (s *Service) UpdatePDFMetadata(req UpdateMetadataRequest) (*UpdateMetadataResult, error) {
	path, err := s.ResolvePath(req.Path)
	if err != nil {
		return nil, err
	}
	if format, _ := document.FormatOf(path); format != document.FormatPDF {
		return nil, ferrors.New(ferrors.ErrorTypeUnsupportedFormat, "document properties can only be written to PDF files").WithPath(path)
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(s.outputDir, filepath.Base(path))
	}
	outputPath, err = s.ResolvePath(outputPath)
	if err != nil {
		return nil, err
	}
	if outputPath == path {
		return nil, ferrors.New(ferrors.ErrorTypeWriteFailure, "output path must differ from the source document").WithPath(outputPath)
	}

	if err := document.WritePDFProperties(path, outputPath, req.Properties); err != nil {
		return nil, err
	}

	pages, err := document.ValidatePDF(outputPath)
	if err != nil {
		return nil, err
	}

	return &UpdateMetadataResult{
		Path:       path,
		OutputPath: outputPath,
		Properties: req.Properties,
		PageCount:  pages,
	}, nil
}

// SuggestPlaceholders detects the fields of a document and asks the configured
// model for placeholder names
func (s *Service) SuggestPlaceholders(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	if s.suggester == nil {
		return nil, fmt.Errorf("placeholder suggestions are not configured")
	}

	detected, err := s.detect(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	result, err := s.suggester.Suggest(ctx, detected.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest placeholders: %w", err)
	}

	return &SuggestResult{Path: detected.Path, Result: result}, nil
}
