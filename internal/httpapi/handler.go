// Package httpapi exposes the form service over HTTP in server mode.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/a3tai/mcp-legal-forms/internal/document"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
	"github.com/a3tai/mcp-legal-forms/internal/fields"
	"github.com/a3tai/mcp-legal-forms/internal/forms"
)

// Handler serves the form service endpoints
type Handler struct {
	svc    *forms.Service
	logger *slog.Logger
	mcp    http.Handler
}

// NewHandler creates a handler. mcpHandler, when set, is mounted on /sse and
// /message.
func NewHandler(svc *forms.Service, logger *slog.Logger, mcpHandler http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger, mcp: mcpHandler}
}

// Router builds the chi router with middleware and every endpoint
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	h.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the endpoints on a chi router
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Get("/api/documents", h.handleListDocuments)
	r.Get("/api/documents/{name}/text", h.handleText)
	r.Get("/api/documents/{name}/metadata", h.handleMetadata)
	r.Post("/api/documents/{name}/fields", h.handleDetect)
	r.Post("/api/documents/{name}/placeholders", h.handleRewrite)
	r.Post("/api/batch", h.handleBatch)

	r.Get("/files/*", h.handleFile)

	if h.mcp != nil {
		r.Handle("/sse", h.mcp)
		r.Handle("/message", h.mcp)
	}
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handleHealth reports liveness.
// GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListDocuments lists the forms of the document directory.
// GET /api/documents?query=
func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.SearchDirectory(forms.SearchRequest{Query: r.URL.Query().Get("query")})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDetect returns the detected fields of a document.
// POST /api/documents/{name}/fields?format=json|yaml|text
func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	format := fields.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := fields.ParseReportFormat(f)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		format = parsed
	}

	result, err := h.svc.DetectFields(forms.DetectRequest{Path: pathParam(r, "name")})
	if err != nil {
		h.writeError(w, err)
		return
	}

	if format == fields.FormatJSON {
		writeJSON(w, http.StatusOK, result)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if format == fields.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if err := fields.WriteReport(w, result.Document, format); err != nil {
		h.logger.Error("failed to write report", "error", err)
	}
}

type rewriteBody struct {
	OutputPath string `json:"output_path"`
}

// handleRewrite writes a placeholder template of a DOCX document.
// POST /api/documents/{name}/placeholders
func (h *Handler) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var body rewriteBody
	if err := decodeOptional(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	result, err := h.svc.RewritePlaceholders(forms.RewriteRequest{
		Path:       pathParam(r, "name"),
		OutputPath: body.OutputPath,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleText returns the plain text of a document.
// GET /api/documents/{name}/text
func (h *Handler) handleText(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ExtractText(forms.TextRequest{Path: pathParam(r, "name")})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMetadata returns the properties of a document.
// GET /api/documents/{name}/metadata
func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Metadata(forms.MetadataRequest{Path: pathParam(r, "name")})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleBatch detects fields in every form of a directory.
// POST /api/batch
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req forms.BatchRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	result, err := h.svc.BatchDetect(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleFile serves a document or template file.
// GET /files/*
func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "*")
	if _, ok := document.FormatOf(name); !ok {
		h.writeError(w, ferrors.New(ferrors.ErrorTypeUnsupportedFormat, "unsupported file type").WithPath(name))
		return
	}

	path, err := h.svc.ResolvePath(name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "file not found"})
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// pathParam returns a decoded URL parameter. chi matches on the raw path
// when the request carries escaped slashes.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// statusFor maps an error to an HTTP status code
func statusFor(err error) int {
	if errors.Is(err, fs.ErrNotExist) {
		return http.StatusNotFound
	}
	switch ferrors.TypeOf(err) {
	case ferrors.ErrorTypePathViolation:
		return http.StatusForbidden
	case ferrors.ErrorTypeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case ferrors.ErrorTypeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case ferrors.ErrorTypeUnreadableDocument, ferrors.ErrorTypeMissingContent:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	body := errorBody{Error: err.Error()}
	if t := ferrors.TypeOf(err); t != ferrors.ErrorTypeUnknown {
		body.Type = t.String()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeOptional decodes a JSON body, accepting an empty one
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
