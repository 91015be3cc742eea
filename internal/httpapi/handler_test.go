package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-legal-forms/internal/document/docxtest"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
	"github.com/a3tai/mcp-legal-forms/internal/fields"
	"github.com/a3tai/mcp-legal-forms/internal/forms"
)

func newTestHandler(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	svc, err := forms.NewService(forms.Config{DocumentDir: dir, MaxFileSize: 1 << 20, Logger: logger})
	require.NoError(t, err)

	docxtest.New().
		Bold("GENERAL INFORMATION").
		Paragraph("Case Number: ", "_____").
		Paragraph("Petitioner [ ] Respondent [X]").
		Write(t, dir, "petition.docx")

	return NewHandler(svc, logger, nil).Router(), dir
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListDocuments(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result forms.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Files, 1)
	assert.Equal(t, "petition.docx", result.Files[0].Name)

	rec = do(t, h, http.MethodGet, "/api/documents?query=lease", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Empty(t, result.Files)
}

func TestDetect(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/documents/petition.docx/fields", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result forms.DetectResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"GENERAL INFORMATION"}, result.Report.Headers)
	assert.Equal(t, 2, result.Counts[fields.KindCheckbox])

	rec = do(t, h, http.MethodPost, "/api/documents/petition.docx/fields?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Underscore Field: Case Number (Length: 5)")

	rec = do(t, h, http.MethodPost, "/api/documents/petition.docx/fields?format=yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "label: Case Number")

	rec = do(t, h, http.MethodPost, "/api/documents/petition.docx/fields?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRewrite(t *testing.T) {
	h, dir := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/documents/petition.docx/placeholders", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result forms.RewriteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, filepath.Join(dir, "templates", "petition.docx"), result.OutputPath)
	assert.Equal(t, 2, result.Stats.Replacements)

	rec = do(t, h, http.MethodPost, "/api/documents/petition.docx/placeholders",
		strings.NewReader(`{"output_path": "custom/out.docx"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.FileExists(t, filepath.Join(dir, "custom", "out.docx"))

	rec = do(t, h, http.MethodPost, "/api/documents/petition.docx/placeholders", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/files/templates/petition.docx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "petition.docx")
	assert.NotZero(t, rec.Body.Len())
}

func TestTextAndMetadata(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/documents/petition.docx/text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var text forms.TextResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &text))
	assert.Contains(t, text.Content, "Case Number: _____")

	rec = do(t, h, http.MethodGet, "/api/documents/petition.docx/metadata", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"format":"docx"`)
}

func TestBatch(t *testing.T) {
	h, dir := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.docx"), []byte("not a zip"), 0o600))

	rec := do(t, h, http.MethodPost, "/api/batch", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result forms.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.NotEmpty(t, result.RunID)
}

func TestErrorStatus(t *testing.T) {
	h, dir := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.docx"), []byte("not a zip"), 0o600))

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"missing document", http.MethodPost, "/api/documents/missing.docx/fields", http.StatusNotFound},
		{"unsupported type", http.MethodPost, "/api/documents/notes.txt/fields", http.StatusUnsupportedMediaType},
		{"broken document", http.MethodPost, "/api/documents/broken.docx/fields", http.StatusUnprocessableEntity},
		{"missing file", http.MethodGet, "/files/missing.docx", http.StatusNotFound},
		{"file type", http.MethodGet, "/files/secret.txt", http.StatusUnsupportedMediaType},
		{"traversal", http.MethodGet, "/files/..%2F..%2Fetc%2Fpasswd.pdf", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusFor(ferrors.New(ferrors.ErrorTypePathViolation, "x")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(ferrors.New(ferrors.ErrorTypeFileTooLarge, "x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(ferrors.New(ferrors.ErrorTypeWriteFailure, "x")))
	assert.Equal(t, http.StatusNotFound, statusFor(ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "x", os.ErrNotExist)))
}

func TestServerRun(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
