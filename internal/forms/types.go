package forms

import (
	"github.com/a3tai/mcp-legal-forms/internal/document"
	"github.com/a3tai/mcp-legal-forms/internal/fields"
	"github.com/a3tai/mcp-legal-forms/internal/intelligence"
	"github.com/a3tai/mcp-legal-forms/internal/llm"
)

// FileInfo represents information about a form document on disk
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Format       string `json:"format"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// DetectRequest represents a request to detect the fillable fields of a document
type DetectRequest struct {
	Path string `json:"path"`
}

// RewriteRequest represents a request to write a placeholder template.
// OutputPath defaults to the output directory with the source file name.
type RewriteRequest struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path,omitempty"`
}

// TextRequest represents a request to export the plain text of a document
type TextRequest struct {
	Path string `json:"path"`
}

// MetadataRequest represents a request to read document properties
type MetadataRequest struct {
	Path string `json:"path"`
}

// UpdateMetadataRequest represents a request to write PDF document properties
type UpdateMetadataRequest struct {
	Path       string            `json:"path"`
	OutputPath string            `json:"output_path,omitempty"`
	Properties map[string]string `json:"properties"`
}

// SearchRequest represents a request to search for form documents in a directory
type SearchRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
}

// BatchRequest represents a request to detect fields in every document of a directory
type BatchRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
	Workers   int    `json:"workers,omitempty"`
}

// SuggestRequest represents a request for model-proposed placeholder names
type SuggestRequest struct {
	Path string `json:"path"`
}

// Response Types

// DetectResult represents the fields found in one document
type DetectResult struct {
	Path    string                   `json:"path"`
	Format  document.Format          `json:"format"`
	Report  fields.Report            `json:"report"`
	Counts  map[fields.FieldKind]int `json:"counts"`
	Skipped []fields.SkippedMatch    `json:"skipped,omitempty"`

	Classification *intelligence.Classification `json:"classification,omitempty"`
	Document       *fields.FormDocument         `json:"-"`
}

// RewriteResult represents a written placeholder template
type RewriteResult struct {
	Path       string               `json:"path"`
	OutputPath string               `json:"output_path"`
	Stats      fields.RewriteResult `json:"stats"`
}

// TextResult represents the plain text of a document
type TextResult struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Length  int    `json:"length"`
}

// MetadataResult represents the properties of a document
type MetadataResult struct {
	Path     string            `json:"path"`
	Format   document.Format   `json:"format"`
	Metadata document.Metadata `json:"metadata"`
}

// UpdateMetadataResult represents a PDF written with new properties
type UpdateMetadataResult struct {
	Path       string            `json:"path"`
	OutputPath string            `json:"output_path"`
	Properties map[string]string `json:"properties"`
	PageCount  int               `json:"page_count"`
}

// SearchResult represents the result of a directory search
type SearchResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}

// BatchItem is the outcome for one document of a batch run
type BatchItem struct {
	Path      string                   `json:"path"`
	Name      string                   `json:"name"`
	Success   bool                     `json:"success"`
	Fields    int                      `json:"fields"`
	Counts    map[fields.FieldKind]int `json:"counts,omitempty"`
	Category  string                   `json:"category,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ErrorType string                   `json:"error_type,omitempty"`
}

// BatchResult represents a batch detection run
type BatchResult struct {
	RunID       string      `json:"run_id"`
	Directory   string      `json:"directory"`
	Documents   []BatchItem `json:"documents"`
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	TotalFields int         `json:"total_fields"`
}

// SuggestResult represents model-proposed placeholder names for a document
type SuggestResult struct {
	Path string `json:"path"`
	*llm.Result
}
