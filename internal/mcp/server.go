package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-legal-forms/internal/config"
	"github.com/a3tai/mcp-legal-forms/internal/descriptions"
	"github.com/a3tai/mcp-legal-forms/internal/fields"
	"github.com/a3tai/mcp-legal-forms/internal/forms"
	"github.com/a3tai/mcp-legal-forms/internal/intelligence"
)

// Server represents the MCP server instance
type Server struct {
	config       *config.Config
	formsService *forms.Service
	mcpServer    *server.MCPServer
	logger       *slog.Logger
	tools        []string
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, formsService *forms.Service, logger *slog.Logger) (*Server, error) {
	if formsService == nil {
		return nil, fmt.Errorf("formsService cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:       cfg,
		formsService: formsService,
		mcpServer:    mcpServer,
		logger:       logger,
	}

	s.registerTools()

	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

// Tools returns the names of the registered tools
func (s *Server) Tools() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"detect_fields",
		mcp.WithDescription(descriptions.DetectFieldsDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the DOCX or PDF form, absolute or relative to the document directory"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: text (default), json or yaml"),
		),
	), s.handleDetectFields)

	s.addTool(mcp.NewTool(
		"rewrite_placeholders",
		mcp.WithDescription(descriptions.RewritePlaceholdersDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the DOCX form"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the template (default: templates directory)"),
		),
	), s.handleRewritePlaceholders)

	s.addTool(mcp.NewTool(
		"extract_text",
		mcp.WithDescription(descriptions.ExtractTextDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the DOCX or PDF document"),
		),
	), s.handleExtractText)

	s.addTool(mcp.NewTool(
		"document_metadata",
		mcp.WithDescription(descriptions.DocumentMetadataDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the DOCX or PDF document"),
		),
	), s.handleDocumentMetadata)

	s.addTool(mcp.NewTool(
		"update_pdf_metadata",
		mcp.WithDescription(descriptions.UpdatePDFMetadataDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF document"),
		),
		mcp.WithObject("properties",
			mcp.Required(),
			mcp.Description("Property names and values, e.g. {\"Title\": \"Petition\"}"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the updated copy (default: templates directory)"),
		),
	), s.handleUpdatePDFMetadata)

	s.addTool(mcp.NewTool(
		"search_documents",
		mcp.WithDescription(descriptions.SearchDocumentsDescription),
		mcp.WithString("directory",
			mcp.Description("Directory path to search (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching"),
		),
	), s.handleSearchDocuments)

	s.addTool(mcp.NewTool(
		"batch_detect",
		mcp.WithDescription(descriptions.BatchDetectDescription),
		mcp.WithString("directory",
			mcp.Description("Directory to process (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional file name filter"),
		),
	), s.handleBatchDetect)

	if s.formsService.HasSuggester() {
		s.addTool(mcp.NewTool(
			"suggest_placeholders",
			mcp.WithDescription(descriptions.SuggestPlaceholdersDescription),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Path to the DOCX or PDF form"),
			),
		), s.handleSuggestPlaceholders)
	}

	s.addTool(mcp.NewTool(
		"server_info",
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

// stringArg returns an optional string argument
func stringArg(request mcp.CallToolRequest, name string) string {
	if v, ok := request.GetArguments()[name].(string); ok {
		return v
	}
	return ""
}

// Handler functions
func (s *Server) handleDetectFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format, err := fields.ParseReportFormat(stringArg(request, "format"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formsService.DetectFields(forms.DetectRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var buf bytes.Buffer
	if err := fields.WriteReport(&buf, result.Document, format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if format == fields.FormatText {
		if c := result.Classification; c != nil && c.Category != intelligence.CategoryUnknown {
			fmt.Fprintf(&buf, "\nCategory: %s (confidence %.2f)\n", c.Category, c.Confidence)
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintf(&buf, "\nSkipped fragments: %d\n", len(result.Skipped))
			for _, sk := range result.Skipped {
				fmt.Fprintf(&buf, "- fragment %d (%s): %s\n", sk.FragmentIndex, sk.Type, sk.Reason)
			}
		}
	}

	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleRewritePlaceholders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formsService.RewritePlaceholders(forms.RewriteRequest{
		Path:       path,
		OutputPath: stringArg(request, "output_path"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Template written: %s\n", result.OutputPath)
	text += fmt.Sprintf("Source: %s\n", result.Path)
	text += fmt.Sprintf("Paragraphs changed: %d\n", result.Stats.ParagraphsChanged)
	text += fmt.Sprintf("Replacements: %d\n", result.Stats.Replacements)
	for _, rule := range s.formsService.Rules() {
		if n := result.Stats.ByRule[rule.Name]; n > 0 {
			text += fmt.Sprintf("  %s -> %s: %d\n", rule.Name, rule.Token, n)
		}
	}
	if result.Stats.Skipped > 0 {
		text += fmt.Sprintf("Paragraphs without a text run (unchanged): %d\n", result.Stats.Skipped)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExtractText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formsService.ExtractText(forms.TextRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Document: %s\n", result.Path)
	text += fmt.Sprintf("Length: %d characters\n", result.Length)
	text += "\nContent:\n"
	text += result.Content

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleDocumentMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formsService.Metadata(forms.MetadataRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatMetadataResult(result)), nil
}

func (s *Server) handleUpdatePDFMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, ok := request.GetArguments()["properties"].(map[string]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("properties must be a non-empty object"), nil
	}
	properties := make(map[string]string, len(raw))
	for k, v := range raw {
		properties[k] = fmt.Sprint(v)
	}

	result, err := s.formsService.UpdatePDFMetadata(forms.UpdateMetadataRequest{
		Path:       path,
		OutputPath: stringArg(request, "output_path"),
		Properties: properties,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Updated PDF written: %s\n", result.OutputPath)
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	for _, k := range sortedKeys(result.Properties) {
		text += fmt.Sprintf("  %s: %s\n", k, result.Properties[k])
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.formsService.SearchDirectory(forms.SearchRequest{
		Directory: stringArg(request, "directory"),
		Query:     stringArg(request, "query"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.TotalCount == 0 {
		text := fmt.Sprintf("No form documents found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			text += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
		return mcp.NewToolResultText(text), nil
	}

	return mcp.NewToolResultText(s.formatSearchResult(result)), nil
}

func (s *Server) handleBatchDetect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.formsService.BatchDetect(ctx, forms.BatchRequest{
		Directory: stringArg(request, "directory"),
		Query:     stringArg(request, "query"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatBatchResult(result)), nil
}

func (s *Server) handleSuggestPlaceholders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.formsService.SuggestPlaceholders(ctx, forms.SuggestRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.formsService.FindDocuments(s.formsService.DocumentDirectory(), 100)
	if err != nil {
		s.logger.Warn("failed to list documents", "error", err)
		files = nil
	}

	text := fmt.Sprintf("%s v%s\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Document directory: %s\n", s.formsService.DocumentDirectory())
	text += fmt.Sprintf("Template directory: %s\n", s.formsService.OutputDirectory())
	text += fmt.Sprintf("Max file size: %d MB\n\n", s.formsService.GetMaxFileSize()/(1024*1024))

	if len(files) > 0 {
		text += fmt.Sprintf("Forms found (%d):\n", len(files))
		for i, file := range files {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%s, %d bytes)\n", i+1, file.Name, file.Format, file.Size)
		}
	} else {
		text += "Forms found: none\n"
	}

	text += "\nAvailable tools:\n"
	for _, name := range s.tools {
		text += fmt.Sprintf("  • %s\n", name)
	}

	text += "\nPlaceholder rules:\n"
	for _, rule := range s.formsService.Rules() {
		text += fmt.Sprintf("  • %s: %q -> %s\n", rule.Name, rule.Pattern, rule.Token)
	}

	return mcp.NewToolResultText(text), nil
}

// Formatting methods
func (s *Server) formatSearchResult(result *forms.SearchResult) string {
	text := fmt.Sprintf("Found %d form document(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Format: %s\n", file.Format)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatMetadataResult(result *forms.MetadataResult) string {
	md := result.Metadata
	text := "Document Properties\n"
	text += fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Format: %s\n", result.Format)

	for _, kv := range [][2]string{
		{"Title", md.Title},
		{"Subject", md.Subject},
		{"Author", md.Author},
		{"Keywords", md.Keywords},
		{"Description", md.Description},
		{"Category", md.Category},
		{"Last modified by", md.LastModifiedBy},
		{"Revision", md.Revision},
		{"Creator", md.Creator},
		{"Producer", md.Producer},
		{"Created", md.Created},
		{"Modified", md.Modified},
		{"Last printed", md.LastPrinted},
	} {
		if kv[1] != "" {
			text += fmt.Sprintf("%s: %s\n", kv[0], kv[1])
		}
	}
	if md.PageCount > 0 {
		text += fmt.Sprintf("Pages: %d\n", md.PageCount)
	}
	if len(md.Custom) > 0 {
		text += "Custom properties:\n"
		for _, k := range sortedKeys(md.Custom) {
			text += fmt.Sprintf("  %s: %s\n", k, md.Custom[k])
		}
	}

	return text
}

func (s *Server) formatBatchResult(result *forms.BatchResult) string {
	text := fmt.Sprintf("Batch run %s\n", result.RunID)
	text += fmt.Sprintf("Directory: %s\n", result.Directory)
	text += fmt.Sprintf("Documents: %d succeeded, %d failed\n", result.Succeeded, result.Failed)
	text += fmt.Sprintf("Total fields: %d\n", result.TotalFields)

	if len(result.Documents) > 0 {
		text += "\n"
	}
	for i, item := range result.Documents {
		if !item.Success {
			text += fmt.Sprintf("%d. %s: FAILED (%s) %s\n", i+1, item.Name, item.ErrorType, item.Error)
			continue
		}
		text += fmt.Sprintf("%d. %s: %d field(s)", i+1, item.Name, item.Fields)
		var parts []string
		for _, kind := range fields.Kinds() {
			if n := item.Counts[kind]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s %d", kind.DisplayName(), n))
			}
		}
		if len(parts) > 0 {
			text += " (" + strings.Join(parts, ", ") + ")"
		}
		if item.Category != "" && item.Category != string(intelligence.CategoryUnknown) {
			text += " [" + item.Category + "]"
		}
		text += "\n"
	}

	return text
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SSEHandler serves the MCP protocol over server-sent events, for mounting
// on the HTTP gateway in server mode
func (s *Server) SSEHandler() http.Handler {
	return server.NewSSEServer(s.mcpServer)
}

// Run serves the MCP protocol on stdin and stdout until ctx is done or
// stdin is closed
func (s *Server) Run(ctx context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode",
		"document_dir", s.formsService.DocumentDirectory(),
		"tools", len(s.tools))

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
