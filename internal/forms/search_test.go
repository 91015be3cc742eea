package forms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-legal-forms/internal/document/docxtest"
)

func TestSearchDirectory(t *testing.T) {
	s, dir := newTestService(t, Config{})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "family", ".cache"), 0o750))

	sampleForm().Write(t, dir, "petition_for_custody.docx")
	sampleForm().Write(t, filepath.Join(dir, "family"), "Child-Support (2024).docx")
	sampleForm().Write(t, filepath.Join(dir, "family", ".cache"), "hidden.docx")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notice.pdf"), []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.docx"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	result, err := s.SearchDirectory(SearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, dir, result.Directory)
	assert.Equal(t, 3, result.TotalCount)

	names := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		names = append(names, f.Name)
		assert.NotEmpty(t, f.ModifiedTime)
	}
	assert.ElementsMatch(t, []string{"petition_for_custody.docx", "Child-Support (2024).docx", "notice.pdf"}, names)

	result, err = s.SearchDirectory(SearchRequest{Query: "support 2024"})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "docx", result.Files[0].Format)

	result, err = s.SearchDirectory(SearchRequest{Directory: "family", Query: "custody"})
	require.NoError(t, err)
	assert.Empty(t, result.Files)

	_, err = s.SearchDirectory(SearchRequest{Directory: "/etc"})
	assert.Error(t, err)

	_, err = s.SearchDirectory(SearchRequest{Directory: "missing"})
	assert.Error(t, err)

	limited, err := s.FindDocuments(dir, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMatchesQuery(t *testing.T) {
	tests := []struct {
		filename string
		query    string
		want     bool
	}{
		{"petition_for_custody.docx", "", true},
		{"petition_for_custody.docx", "custody", true},
		{"petition_for_custody.docx", "petition custody", true},
		{"Child-Support (2024).docx", "support 2024", true},
		{"Child-Support (2024).docx", "docx", true},
		{"petition_for_custody.docx", "divorce", false},
		{"petition_for_custody.docx", "petition divorce", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename+"/"+tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesQuery(tt.filename, tt.query))
		})
	}
}

func TestSearchSkipsOversizedFiles(t *testing.T) {
	s, dir := newTestService(t, Config{MaxFileSize: 16})
	docxtest.New().Paragraph("Name: ____").Write(t, dir, "form.docx")

	result, err := s.SearchDirectory(SearchRequest{})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
}
