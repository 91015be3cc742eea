// Package docxtest builds small DOCX packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Builder assembles word/document.xml and optional header, footer and
// property parts
type Builder struct {
	body    strings.Builder
	headers []string
	footers []string
	core    map[string]string
	custom  [][2]string
}

// New returns an empty builder
func New() *Builder {
	return &Builder{}
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func run(text string) string {
	return `<w:r><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r>`
}

func paragraph(props string, runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	if props != "" {
		b.WriteString("<w:pPr>" + props + "</w:pPr>")
	}
	for _, r := range runs {
		b.WriteString(run(r))
	}
	b.WriteString("</w:p>")
	return b.String()
}

// Paragraph adds a body paragraph with one run per argument
func (b *Builder) Paragraph(runs ...string) *Builder {
	b.body.WriteString(paragraph("", runs...))
	return b
}

// Bold adds a paragraph whose run is bold
func (b *Builder) Bold(text string) *Builder {
	b.body.WriteString(`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r></w:p>`)
	return b
}

// Centered adds a center-aligned paragraph
func (b *Builder) Centered(text string) *Builder {
	b.body.WriteString(paragraph(`<w:jc w:val="center"/>`, text))
	return b
}

// Table adds a table with one row per argument and one single-paragraph cell
// per row element
func (b *Builder) Table(rows ...[]string) *Builder {
	b.body.WriteString(tableXML(rows))
	return b
}

func tableXML(rows [][]string) string {
	var s strings.Builder
	s.WriteString("<w:tbl>")
	for _, row := range rows {
		s.WriteString("<w:tr>")
		for _, cell := range row {
			s.WriteString("<w:tc>")
			if cell == "" {
				s.WriteString("<w:p/>")
			} else {
				s.WriteString(paragraph("", cell))
			}
			s.WriteString("</w:tc>")
		}
		s.WriteString("</w:tr>")
	}
	s.WriteString("</w:tbl>")
	return s.String()
}

// Raw appends body XML as is
func (b *Builder) Raw(bodyXML string) *Builder {
	b.body.WriteString(bodyXML)
	return b
}

// Header adds a default page header part with the given paragraphs
func (b *Builder) Header(paragraphs ...string) *Builder {
	b.headers = append(b.headers, partBody(paragraphs))
	return b
}

// Footer adds a default page footer part with the given paragraphs
func (b *Builder) Footer(paragraphs ...string) *Builder {
	b.footers = append(b.footers, partBody(paragraphs))
	return b
}

func partBody(paragraphs []string) string {
	var s strings.Builder
	for _, p := range paragraphs {
		s.WriteString(paragraph("", p))
	}
	return s.String()
}

// Core sets a core property such as "dc:title" or "cp:lastModifiedBy"
func (b *Builder) Core(name, value string) *Builder {
	if b.core == nil {
		b.core = make(map[string]string)
	}
	b.core[name] = value
	return b
}

// Custom adds a custom document property
func (b *Builder) Custom(name, value string) *Builder {
	b.custom = append(b.custom, [2]string{name, value})
	return b
}

// Bytes returns the DOCX package
func (b *Builder) Bytes() []byte {
	var rels, sect strings.Builder
	files := map[string]string{}
	order := []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}

	for i, h := range b.headers {
		name := fmt.Sprintf("header%d.xml", i+1)
		id := fmt.Sprintf("rIdH%d", i+1)
		files["word/"+name] = `<w:hdr xmlns:w="` + wordNS + `">` + h + `</w:hdr>`
		order = append(order, "word/"+name)
		rels.WriteString(`<Relationship Id="` + id + `" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="` + name + `"/>`)
		sect.WriteString(`<w:headerReference w:type="default" r:id="` + id + `"/>`)
	}
	for i, f := range b.footers {
		name := fmt.Sprintf("footer%d.xml", i+1)
		id := fmt.Sprintf("rIdF%d", i+1)
		files["word/"+name] = `<w:ftr xmlns:w="` + wordNS + `">` + f + `</w:ftr>`
		order = append(order, "word/"+name)
		rels.WriteString(`<Relationship Id="` + id + `" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="` + name + `"/>`)
		sect.WriteString(`<w:footerReference w:type="default" r:id="` + id + `"/>`)
	}

	files["[Content_Types].xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`</Types>`
	files["_rels/.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`
	files["word/document.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + wordNS + `" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<w:body>` + b.body.String() + `<w:sectPr>` + sect.String() + `</w:sectPr></w:body></w:document>`

	if rels.Len() > 0 {
		files["word/_rels/document.xml.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			rels.String() + `</Relationships>`
		order = append(order, "word/_rels/document.xml.rels")
	}

	if len(b.core) > 0 {
		var core strings.Builder
		core.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
			`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">`)
		for name, value := range b.core {
			core.WriteString("<" + name + ">" + escape(value) + "</" + name + ">")
		}
		core.WriteString(`</cp:coreProperties>`)
		files["docProps/core.xml"] = core.String()
		order = append(order, "docProps/core.xml")
	}

	if len(b.custom) > 0 {
		var custom strings.Builder
		custom.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/custom-properties" ` +
			`xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`)
		for i, kv := range b.custom {
			fmt.Fprintf(&custom, `<property fmtid="{D5CDD505-2E9C-101B-9397-08002B2CF9AE}" pid="%d" name="%s"><vt:lpwstr>%s</vt:lpwstr></property>`,
				i+2, escape(kv[0]), escape(kv[1]))
		}
		custom.WriteString(`</Properties>`)
		files["docProps/custom.xml"] = custom.String()
		order = append(order, "docProps/custom.xml")
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, name := range order {
		f, err := w.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			panic(err)
		}
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Write stores the package under dir and returns its path
func (b *Builder) Write(tb testing.TB, dir, name string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		tb.Fatalf("write docx: %v", err)
	}
	return path
}

// ReadPart returns the content of one entry of a DOCX file
func ReadPart(tb testing.TB, path, name string) string {
	tb.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		tb.Fatalf("open docx: %v", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			tb.Fatalf("open part: %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			tb.Fatalf("read part: %v", err)
		}
		return string(data)
	}
	tb.Fatalf("part %s not found", name)
	return ""
}
