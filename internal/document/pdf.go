package document

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

// readPDF loads the text of every page as read-only line paragraphs. PDF files
// carry no header or table structure.
func readPDF(path string, logger *slog.Logger) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "failed to open PDF", err).WithPath(path)
	}
	defer f.Close()

	doc := &Document{Path: path, Format: FormatPDF}
	for i := 1; i <= r.NumPage(); i++ {
		text, err := pageText(r, i)
		if err != nil {
			logger.Warn("skipping unreadable PDF page", "path", path, "page", i, "error", err)
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			doc.Body = append(doc.Body, NewTextParagraph(line, i))
		}
	}

	doc.Metadata = pdfInfo(r)
	doc.Metadata.PageCount = r.NumPage()
	return doc, nil
}

func pageText(r *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", pageNum, rec)
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// pdfInfo reads the Info dictionary of the trailer
func pdfInfo(r *pdf.Reader) (md Metadata) {
	defer func() {
		if recover() != nil {
			md = Metadata{}
		}
	}()

	trailer := r.Trailer()
	if trailer.IsNull() {
		return md
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return md
	}

	get := func(key string) string {
		v := info.Key(key)
		if v.IsNull() {
			return ""
		}
		return strings.TrimSpace(v.Text())
	}

	md.Title = get("Title")
	md.Author = get("Author")
	md.Subject = get("Subject")
	md.Keywords = get("Keywords")
	md.Creator = get("Creator")
	md.Producer = get("Producer")
	if d := get("CreationDate"); d != "" {
		md.Created = formatPDFDate(d)
	}
	if d := get("ModDate"); d != "" {
		md.Modified = formatPDFDate(d)
	}
	return md
}

func pdfConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// ValidatePDF parses the file with relaxed validation and returns its page count
func ValidatePDF(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "failed to open PDF", err).WithPath(path)
	}
	defer file.Close()

	ctx, err := api.ReadContext(file, pdfConfiguration())
	if err != nil {
		return 0, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "failed to read PDF context", err).WithPath(path)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "failed to ensure page count", err).WithPath(path)
	}
	return ctx.PageCount, nil
}

// WritePDFProperties copies inFile to outFile with the given document
// properties added to its Info dictionary
func WritePDFProperties(inFile, outFile string, properties map[string]string) error {
	if len(properties) == 0 {
		return ferrors.New(ferrors.ErrorTypeWriteFailure, "no properties to write").WithPath(outFile)
	}
	if _, err := ValidatePDF(inFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outFile), 0o750); err != nil {
		return ferrors.Wrap(ferrors.ErrorTypeWriteFailure, "cannot create output directory", err).WithPath(outFile)
	}
	if err := api.AddPropertiesFile(inFile, outFile, properties, pdfConfiguration()); err != nil {
		return ferrors.Wrap(ferrors.ErrorTypeWriteFailure, "cannot write PDF properties", err).WithPath(outFile)
	}
	return nil
}
