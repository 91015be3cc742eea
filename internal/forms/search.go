package forms

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-legal-forms/internal/document"
)

// SearchDirectory searches for DOCX and PDF files in a directory. An empty
// directory means the document directory.
func (s *Service) SearchDirectory(req SearchRequest) (*SearchResult, error) {
	if req.Directory == "" {
		req.Directory = s.documentDir
	}

	absDirectory, err := s.pathValidator.ValidateDirectory(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if _, err := os.Stat(absDirectory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", req.Directory)
	}

	files, err := s.findDocuments(absDirectory, req.Query, 0)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Files:       files,
		TotalCount:  len(files),
		Directory:   absDirectory,
		SearchQuery: req.Query,
	}, nil
}

// FindDocuments lists every form document in a directory without filtering,
// stopping after limit files when limit is positive
func (s *Service) FindDocuments(directory string, limit int) ([]FileInfo, error) {
	absDirectory, err := s.pathValidator.ValidateDirectory(directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.findDocuments(absDirectory, "", limit)
}

func (s *Service) findDocuments(absDirectory, query string, limit int) ([]FileInfo, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	files := []FileInfo{}

	err := filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Continue walking even if we encounter an error with a specific file
			return nil //nolint:nilerr // Intentionally continue on file errors
		}

		if !s.pathValidator.IsWithin(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Hidden entries include the writer's temporary files
		if strings.HasPrefix(d.Name(), ".") && path != absDirectory {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if limit > 0 && len(files) >= limit {
			return filepath.SkipAll
		}

		format, ok := document.FormatOf(d.Name())
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // Intentionally continue on file errors
		}
		if info.Size() == 0 || (s.maxFileSize > 0 && info.Size() > s.maxFileSize) {
			return nil
		}

		if query != "" && !matchesQuery(info.Name(), query) {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Format:       string(format),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// matchesQuery performs fuzzy matching on the filename
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	fileName := strings.ToLower(filename)

	// Exact substring match
	if strings.Contains(fileName, query) {
		return true
	}

	nameWithoutExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	// Every query word must appear inside some filename word
	words := splitIntoWords(nameWithoutExt)
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// splitIntoWords splits a string into lowercase words using common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
