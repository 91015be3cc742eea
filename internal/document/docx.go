package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

const (
	defaultMainPart   = "word/document.xml"
	officeDocumentRel = "/officeDocument"
)

// docxArchive keeps the raw package so Save can copy untouched entries
type docxArchive struct {
	zr    *zip.Reader
	parts map[string]*docxPart
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
	Mode   string `xml:"TargetMode,attr"`
}

type relationships struct {
	Items []relationship `xml:"Relationship"`
}

// ReadDocx parses a DOCX package held in memory. name is recorded as the
// document path.
func ReadDocx(data []byte, name string) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "not a valid DOCX package", err).WithPath(name)
	}

	doc := &Document{
		Path:   name,
		Format: FormatDocx,
		archive: &docxArchive{
			zr:    zr,
			parts: make(map[string]*docxPart),
		},
	}

	mainName := findMainPart(zr)
	main, err := doc.archive.load(mainName)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "missing main document part", err).WithPath(name)
	}

	content, err := scanPart(main)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "malformed document XML", err).WithPath(name)
	}

	doc.Body = content.blocks
	doc.tables = content.tables
	doc.TextBoxes = content.textBoxes
	doc.ContentControls = content.controls
	doc.SimpleFields = content.simpleFields
	doc.FieldInstructions = content.instructions

	rels := readRelationships(zr, relsPathFor(mainName))
	sections, err := doc.loadSections(mainName, content.sections, rels)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrorTypeUnreadableDocument, "malformed header or footer", err).WithPath(name)
	}
	doc.Sections = sections

	doc.Metadata = readDocxMetadata(zr)
	return doc, nil
}

func (a *docxArchive) load(name string) (*docxPart, error) {
	if p, ok := a.parts[name]; ok {
		return p, nil
	}
	f := findZipEntry(a.zr, name)
	if f == nil {
		return nil, fmt.Errorf("entry %s not found", name)
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil, err
	}
	p := &docxPart{name: f.Name, data: data}
	a.parts[name] = p
	a.parts[f.Name] = p
	return p, nil
}

// loadSections resolves header and footer references of every section. A part
// referenced by several sections is parsed once and shared.
func (d *Document) loadSections(mainName string, refs []sectionRefs, rels map[string]string) ([]Section, error) {
	base := path.Dir(mainName)
	parsed := make(map[string][]*Paragraph)

	resolve := func(ids []string) ([]*Paragraph, error) {
		var out []*Paragraph
		seen := make(map[string]bool)
		for _, id := range ids {
			target, ok := rels[id]
			if !ok {
				continue
			}
			name := resolveTarget(base, target)
			if seen[name] {
				continue
			}
			seen[name] = true

			if paras, ok := parsed[name]; ok {
				out = append(out, paras...)
				continue
			}
			part, err := d.archive.load(name)
			if err != nil {
				continue
			}
			content, err := scanPart(part)
			if err != nil {
				return nil, err
			}
			paras := collectParagraphs(content.blocks)
			parsed[name] = paras
			out = append(out, paras...)
		}
		return out, nil
	}

	sections := make([]Section, 0, len(refs))
	for _, ref := range refs {
		headers, err := resolve(ref.headers)
		if err != nil {
			return nil, err
		}
		footers, err := resolve(ref.footers)
		if err != nil {
			return nil, err
		}
		sections = append(sections, Section{Headers: headers, Footers: footers})
	}
	return sections, nil
}

// collectParagraphs flattens paragraphs of a block list, table cells included
func collectParagraphs(blocks []Block) []*Paragraph {
	var out []*Paragraph
	var walkTable func(t *Table)
	walkTable = func(t *Table) {
		for _, r := range t.Rows {
			for _, c := range r.Cells {
				out = append(out, c.Paragraphs...)
				for _, nested := range c.Tables {
					walkTable(nested)
				}
			}
		}
	}
	for _, b := range blocks {
		switch v := b.(type) {
		case *Paragraph:
			out = append(out, v)
		case *Table:
			walkTable(v)
		}
	}
	return out
}

func findMainPart(zr *zip.Reader) string {
	rels := readRelationshipItems(zr, "_rels/.rels")
	for _, r := range rels {
		if strings.HasSuffix(r.Type, officeDocumentRel) {
			return strings.TrimPrefix(r.Target, "/")
		}
	}
	return defaultMainPart
}

func relsPathFor(partName string) string {
	return path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
}

func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(base, target))
}

func readRelationships(zr *zip.Reader, name string) map[string]string {
	out := make(map[string]string)
	for _, r := range readRelationshipItems(zr, name) {
		if strings.EqualFold(r.Mode, "External") {
			continue
		}
		out[r.ID] = r.Target
	}
	return out
}

func readRelationshipItems(zr *zip.Reader, name string) []relationship {
	data, err := readZipEntry(zr, name)
	if err != nil {
		return nil
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}
	return rels.Items
}

func findZipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	// Some producers write mixed-case part names.
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	f := findZipEntry(zr, name)
	if f == nil {
		return nil, fmt.Errorf("entry %s not found", name)
	}
	return readZipFile(f)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
