package document

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

// Options control how documents are opened
type Options struct {
	// MaxFileSize rejects larger files when positive
	MaxFileSize int64
	Logger      *slog.Logger
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// FormatOf returns the format implied by a file extension
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatDocx, true
	case ".pdf":
		return FormatPDF, true
	default:
		return "", false
	}
}

// Open loads a DOCX or PDF file
func Open(path string, opts Options) (*Document, error) {
	opts.defaults()

	format, ok := FormatOf(path)
	if !ok {
		return nil, ferrors.New(ferrors.ErrorTypeUnsupportedFormat, "unsupported file type "+filepath.Ext(path)).WithPath(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "cannot access file", err).WithPath(path)
	}
	if info.IsDir() {
		return nil, ferrors.New(ferrors.ErrorTypeUnreadableDocument, "path is a directory").WithPath(path)
	}
	if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
		return nil, ferrors.New(ferrors.ErrorTypeFileTooLarge, "file exceeds maximum size").WithPath(path)
	}

	if format == FormatPDF {
		return readPDF(path, opts.Logger)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "cannot open file", err).WithPath(path)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "cannot read file", err).WithPath(path)
	}
	return ReadDocx(data, path)
}
