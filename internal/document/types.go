// Package document is the document access layer: it loads DOCX and PDF files into
// an in-memory model of paragraphs, tables and header/footer sections, and writes
// modified DOCX paragraphs back to disk.
package document

import (
	"strings"
)

// Format identifies a document container type
type Format string

const (
	FormatDocx Format = "docx"
	FormatPDF  Format = "pdf"
)

// Block is a top-level body element: a *Paragraph or a *Table
type Block interface {
	block()
}

// Document is an in-memory document loaded by Open or ReadDocx
type Document struct {
	Path     string    `json:"path"`
	Format   Format    `json:"format"`
	Body     []Block   `json:"-"`
	Sections []Section `json:"-"`
	Metadata Metadata  `json:"metadata"`

	// TextBoxes holds paragraphs nested in drawing text boxes. They are not
	// part of Body.
	TextBoxes         []*Paragraph     `json:"-"`
	ContentControls   []ContentControl `json:"content_controls,omitempty"`
	SimpleFields      []SimpleField    `json:"simple_fields,omitempty"`
	FieldInstructions []string         `json:"field_instructions,omitempty"`

	tables  []*Table
	archive *docxArchive
}

// Section carries the header and footer paragraphs referenced by one section
// break of the document
type Section struct {
	Headers []*Paragraph
	Footers []*Paragraph
}

// ContentControl is a structured document tag (w:sdt) with its tag and text
type ContentControl struct {
	Tag  string `json:"tag,omitempty"`
	Text string `json:"text"`
}

// SimpleField is a w:fldSimple element with its instruction and display text
type SimpleField struct {
	Instruction string `json:"instruction,omitempty"`
	Text        string `json:"text"`
}

// Metadata is the unified document property set for DOCX and PDF files
type Metadata struct {
	Title          string            `json:"title,omitempty" yaml:"title,omitempty"`
	Subject        string            `json:"subject,omitempty" yaml:"subject,omitempty"`
	Author         string            `json:"author,omitempty" yaml:"author,omitempty"`
	Keywords       string            `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Category       string            `json:"category,omitempty" yaml:"category,omitempty"`
	LastModifiedBy string            `json:"last_modified_by,omitempty" yaml:"last_modified_by,omitempty"`
	Revision       string            `json:"revision,omitempty" yaml:"revision,omitempty"`
	Creator        string            `json:"creator,omitempty" yaml:"creator,omitempty"`
	Producer       string            `json:"producer,omitempty" yaml:"producer,omitempty"`
	Created        string            `json:"created,omitempty" yaml:"created,omitempty"`
	Modified       string            `json:"modified,omitempty" yaml:"modified,omitempty"`
	LastPrinted    string            `json:"last_printed,omitempty" yaml:"last_printed,omitempty"`
	PageCount      int               `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	Custom         map[string]string `json:"custom_properties,omitempty" yaml:"custom_properties,omitempty"`
}

// Paragraph is one paragraph of text with the formatting signals used for
// header detection
type Paragraph struct {
	Style    string
	Bold     bool
	Centered bool
	// Page is the 1-based page number for PDF lines, 0 for DOCX paragraphs.
	Page int

	pieces []piece
	part   *docxPart
	text   string
	edited bool
}

// NewTextParagraph creates a read-only paragraph holding plain text, as
// produced for PDF lines
func NewTextParagraph(text string, page int) *Paragraph {
	return &Paragraph{text: text, Page: page}
}

func (*Paragraph) block() {}

// Text returns the current paragraph text, including edits not yet saved
func (p *Paragraph) Text() string {
	return p.text
}

// Edited reports whether SetText changed the paragraph
func (p *Paragraph) Edited() bool {
	return p.edited
}

// Table is a grid of rows and cells
type Table struct {
	Rows []*Row
}

func (*Table) block() {}

// Row is one table row
type Row struct {
	Cells []*Cell
}

// Text joins the trimmed text of every cell in the row with a single space
func (r *Row) Text() string {
	parts := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if t := strings.TrimSpace(c.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Cell is one table cell. Nested tables are kept in Tables.
type Cell struct {
	Paragraphs []*Paragraph
	Tables     []*Table
}

// Text joins the cell's paragraph texts with newlines
func (c *Cell) Text() string {
	texts := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		texts[i] = p.Text()
	}
	return strings.Join(texts, "\n")
}

// Paragraphs returns the top-level body paragraphs in document order
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, b := range d.Body {
		if p, ok := b.(*Paragraph); ok {
			out = append(out, p)
		}
	}
	return out
}

// Tables returns every table in document order, nested tables included, each
// directly after its parent
func (d *Document) Tables() []*Table {
	return d.tables
}

// HasContent reports whether the document has any paragraph or table
func (d *Document) HasContent() bool {
	return len(d.Body) > 0
}

// Writable reports whether the document supports SetText and Save
func (d *Document) Writable() bool {
	return d.Format == FormatDocx && d.archive != nil
}

// Text flattens the document into newline-separated plain text: table cells,
// body paragraphs, content controls, simple fields, field instructions and
// text boxes, each non-empty entry on its own line
func (d *Document) Text() string {
	var lines []string
	add := func(s string) {
		if strings.TrimSpace(s) != "" {
			lines = append(lines, s)
		}
	}

	for _, t := range d.tables {
		for _, r := range t.Rows {
			for _, c := range r.Cells {
				add(c.Text())
			}
		}
	}
	for _, p := range d.Paragraphs() {
		add(p.Text())
	}
	for _, cc := range d.ContentControls {
		if cc.Tag != "" {
			add(cc.Tag + ": " + cc.Text)
		} else {
			add(cc.Text)
		}
	}
	for _, f := range d.SimpleFields {
		if f.Instruction != "" {
			add(strings.TrimSpace(f.Instruction) + ": " + f.Text)
		} else {
			add(f.Text)
		}
	}
	for _, instr := range d.FieldInstructions {
		add(strings.TrimSpace(instr))
	}
	for _, p := range d.TextBoxes {
		add(p.Text())
	}
	return strings.Join(lines, "\n")
}
